package ast

import (
	"regexp"
	"strings"
)

// Combinator joins an element to the one before it: "" (none), " "
// (descendant), ">", "+", "~", "|" or "&" variants.
type Combinator struct {
	Value             string
	EmptyOrWhitespace bool
}

// NewCombinator normalizes value into a combinator.
func NewCombinator(value string) Combinator {
	if value == " " {
		return Combinator{Value: " ", EmptyOrWhitespace: true}
	}
	value = strings.TrimSpace(value)
	return Combinator{Value: value, EmptyOrWhitespace: value == ""}
}

// CSS renders the combinator with the padding it needs.
func (c Combinator) CSS(ctx *GenContext) string {
	switch {
	case c.Value == "" || c.Value == " " || c.Value == "|":
		return c.Value
	case ctx != nil && ctx.Compress:
		return c.Value
	}
	return " " + c.Value + " "
}

// Element is one compound part of a selector. Plain elements carry their text
// in Text; attributes, parenthesized selectors and interpolations carry a node
// in Value.
type Element struct {
	Meta
	Combinator Combinator
	Text       string
	Value      Node
	IsVariable bool
}

// NewElement returns a plain text element.
func NewElement(combinator, text string, index int, file *FileInfo) *Element {
	return &Element{Meta: Pos(index, file), Combinator: NewCombinator(combinator), Text: text}
}

// NewNodeElement returns an element whose value is a node.
func NewNodeElement(combinator string, value Node, isVariable bool, index int, file *FileInfo) *Element {
	return &Element{Meta: Pos(index, file), Combinator: NewCombinator(combinator), Value: value, IsVariable: isVariable}
}

func (e *Element) Kind() Kind { return KindElement }

func (e *Element) Accept(v *Visitor) {
	v.VisitNode(&e.Value)
}

// IsParentRef reports whether the element is the parent selector "&".
func (e *Element) IsParentRef() bool {
	return e.Value == nil && e.Text == "&"
}

// ValueCSS renders the element value without its combinator.
func (e *Element) ValueCSS(ctx *GenContext) string {
	if e.Value == nil {
		return e.Text
	}
	if q, ok := e.Value.(*Quoted); ok {
		return q.Value
	}
	c := GenContext{}
	if ctx != nil {
		c = *ctx
	}
	if _, ok := e.Value.(*Paren); ok {
		c.FirstSelector = true
	}
	var b Buffer
	e.Value.GenCSS(&c, &b)
	if ctx != nil && c.err != nil {
		ctx.Fail(c.err)
	}
	return b.String()
}

// ToCSS renders the combinator followed by the value.
func (e *Element) ToCSS(ctx *GenContext) string {
	value := e.ValueCSS(ctx)
	if value == "" && strings.HasPrefix(e.Combinator.Value, "&") {
		return ""
	}
	return e.Combinator.CSS(ctx) + value
}

func (e *Element) GenCSS(ctx *GenContext, out Output) {
	out.Add(e.ToCSS(ctx), e.File, e.Index)
}

// Attribute is an attribute selector such as [type="text" i].
type Attribute struct {
	Meta
	Key   string
	Op    string
	Value Node
	Cif   string
}

// NewAttribute returns an attribute selector.
func NewAttribute(key, op string, value Node, cif string, index int, file *FileInfo) *Attribute {
	return &Attribute{Meta: Pos(index, file), Key: key, Op: op, Value: value, Cif: cif}
}

func (a *Attribute) Kind() Kind { return KindAttribute }

func (a *Attribute) Accept(v *Visitor) {
	v.VisitNode(&a.Value)
}

func (a *Attribute) GenCSS(ctx *GenContext, out Output) {
	out.Add(a.ToCSS(ctx), a.File, a.Index)
}

// ToCSS renders the attribute selector.
func (a *Attribute) ToCSS(ctx *GenContext) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(a.Key)
	if a.Op != "" && a.Value != nil {
		sb.WriteString(a.Op)
		var b Buffer
		a.Value.GenCSS(ctx, &b)
		sb.WriteString(b.String())
	}
	if a.Cif != "" {
		sb.WriteString(" " + a.Cif)
	}
	sb.WriteString("]")
	return sb.String()
}

// Selector is a sequence of elements with an optional extend list and guard.
type Selector struct {
	Meta
	Elements   []*Element
	ExtendList []*Extend
	Condition  Node

	// EvaldCondition is the result of the guard once evaluated. Selectors
	// without a guard are always output.
	EvaldCondition bool

	// MediaEmpty marks the implicit "&" selector wrapping at-rule bodies.
	MediaEmpty bool
}

// NewSelector returns a selector.
func NewSelector(elements []*Element, extends []*Extend, condition Node, index int, file *FileInfo) *Selector {
	return &Selector{
		Meta:           Pos(index, file),
		Elements:       elements,
		ExtendList:     extends,
		Condition:      condition,
		EvaldCondition: condition == nil,
	}
}

// CreateEmptySelectors returns the single "&" selector used for at-rule bodies.
func CreateEmptySelectors(index int, file *FileInfo) []*Selector {
	el := NewElement("", "&", index, file)
	sel := NewSelector([]*Element{el}, nil, nil, index, file)
	sel.MediaEmpty = true
	return []*Selector{sel}
}

// CreateDerived returns a selector with new elements that keeps the receiver's
// position, visibility, media flag and, when extends is nil, its extend list.
func (s *Selector) CreateDerived(elements []*Element, extends []*Extend, evaldCondition *bool) *Selector {
	if extends == nil {
		extends = s.ExtendList
	}
	out := &Selector{
		Meta:           s.Derive(),
		Elements:       elements,
		ExtendList:     extends,
		EvaldCondition: s.EvaldCondition,
		MediaEmpty:     s.MediaEmpty,
	}
	if evaldCondition != nil {
		out.EvaldCondition = *evaldCondition
	}
	return out
}

func (s *Selector) Kind() Kind { return KindSelector }

func (s *Selector) Accept(v *Visitor) {
	visitEach(v, s.Elements)
	visitEach(v, s.ExtendList)
	v.VisitNode(&s.Condition)
}

func (s *Selector) GenCSS(ctx *GenContext, out Output) {
	if !ctx.FirstSelector && len(s.Elements) > 0 && s.Elements[0].Combinator.Value == "" {
		out.Add(" ", s.File, s.Index)
	}
	for _, e := range s.Elements {
		e.GenCSS(ctx, out)
	}
}

// IsOutput reports whether the selector's guard allows it to be emitted.
func (s *Selector) IsOutput() bool {
	return s.EvaldCondition
}

// IsJustParentSelector reports whether the selector is a lone "&".
func (s *Selector) IsJustParentSelector() bool {
	if s.MediaEmpty || len(s.Elements) != 1 {
		return false
	}
	e := s.Elements[0]
	return e.IsParentRef() && (e.Combinator.Value == " " || e.Combinator.Value == "")
}

var mixinElementToken = regexp.MustCompile(`[,&#*.\w-]([\w-]|(\\.))*`)

// MixinElements returns the simplified tokens the selector is matched by when
// it names a mixin or namespace, without a leading "&".
func (s *Selector) MixinElements() []string {
	var sb strings.Builder
	for _, e := range s.Elements {
		sb.WriteString(e.Combinator.Value)
		if e.Value == nil {
			sb.WriteString(e.Text)
		} else {
			sb.WriteString(CSS(e.Value))
		}
	}
	tokens := mixinElementToken.FindAllString(sb.String(), -1)
	if len(tokens) > 0 && tokens[0] == "&" {
		tokens = tokens[1:]
	}
	return tokens
}

// Match returns how many of other's mixin tokens the receiver's leading
// elements match, or 0 when it does not match all of them.
func (s *Selector) Match(other *Selector) int {
	tokens := other.MixinElements()
	if len(tokens) == 0 || len(s.Elements) < len(tokens) {
		return 0
	}
	for i, tok := range tokens {
		if s.Elements[i].Value != nil || s.Elements[i].Text != tok {
			return 0
		}
	}
	return len(tokens)
}

// ToCSS renders the selector as a standalone selector.
func (s *Selector) ToCSS(ctx *GenContext) string {
	c := GenContext{FirstSelector: true}
	if ctx != nil {
		c.Compress = ctx.Compress
		c.NumPrecision = ctx.NumPrecision
	}
	var b Buffer
	s.GenCSS(&c, &b)
	return strings.TrimSpace(b.String())
}

// Extend is an :extend() directive, either in a selector's extend list or as
// a rule ("&:extend(.a);").
type Extend struct {
	Meta
	Selector *Selector
	Option   string // "all" or ""
	ObjectID int
	// ParentIDs lists the ids of the extends this one was derived from,
	// including its own.
	ParentIDs []int

	AllowBefore bool
	AllowAfter  bool

	SelfSelectors                 []*Selector
	FirstExtendOnThisSelectorPath bool
	HasFoundMatches               bool
}

// NewExtend returns an extend with the given id.
func NewExtend(selector *Selector, option string, id int, index int, file *FileInfo) *Extend {
	e := &Extend{
		Meta:      Pos(index, file),
		Selector:  selector,
		Option:    option,
		ObjectID:  id,
		ParentIDs: []int{id},
	}
	if option == "all" {
		e.AllowBefore = true
		e.AllowAfter = true
	}
	return e
}

func (e *Extend) Kind() Kind    { return KindExtend }
func (e *Extend) ruleBodyItem() {}

func (e *Extend) Accept(v *Visitor) {
	v.Visit(e.Selector)
}

func (e *Extend) GenCSS(ctx *GenContext, out Output) {}

// Clone returns a copy of the extend under a new id, keeping visibility.
func (e *Extend) Clone(id int) *Extend {
	out := NewExtend(e.Selector, e.Option, id, e.Index, e.File)
	out.CopyVisibility(&e.Meta)
	return out
}

// FindSelfSelectors computes the selector the extend adds to matched paths
// from the path it was declared on.
func (e *Extend) FindSelfSelectors(selectors []*Selector) {
	var elements []*Element
	for i, sel := range selectors {
		els := sel.Elements
		if i > 0 && len(els) > 0 && els[0].Combinator.Value == "" {
			first := *els[0]
			first.Combinator = NewCombinator(" ")
			els = append([]*Element{&first}, els[1:]...)
		}
		elements = append(elements, els...)
	}
	self := NewSelector(elements, nil, nil, e.Index, e.File)
	self.CopyVisibility(&e.Meta)
	e.SelfSelectors = []*Selector{self}
}
