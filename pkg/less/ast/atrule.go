package ast

import (
	"regexp"
	"strings"
)

// Family identifies a group of nested at-rules that bubble and merge with
// each other.
type Family uint8

const (
	FamilyMedia Family = iota
	FamilyContainer
	FamilyLayer
	FamilyScope
	FamilyStartingStyle
)

var familyInfo = [...]struct {
	keyword string
	kind    Kind
}{
	FamilyMedia:         {"@media", KindMedia},
	FamilyContainer:     {"@container", KindContainer},
	FamilyLayer:         {"@layer", KindLayer},
	FamilyScope:         {"@scope", KindScope},
	FamilyStartingStyle: {"@starting-style", KindStartingStyle},
}

// Keyword returns the at-keyword of the family.
func (f Family) Keyword() string {
	return familyInfo[f].keyword
}

func (f Family) String() string {
	return strings.TrimPrefix(f.Keyword(), "@")
}

// FamilyByName returns the family of an at-keyword such as "@media" or "media".
func FamilyByName(name string) (Family, bool) {
	name = "@" + strings.TrimPrefix(strings.ToLower(name), "@")
	for f, info := range familyInfo {
		if info.keyword == name {
			return Family(f), true
		}
	}
	return 0, false
}

// NestedAtRule is a conditional group at-rule (@media, @container, @layer,
// @scope, @starting-style). Its body is a single ruleset with an implicit "&"
// selector, so nested declarations pick up the enclosing selectors.
type NestedAtRule struct {
	Meta
	Family   Family
	Features Node // *Value of feature expressions, nil when the rule has none
	Rules    []RuleBodyItem
}

// NewNestedAtRule returns a nested at-rule wrapping rules in its body ruleset.
func NewNestedAtRule(family Family, features Node, rules []RuleBodyItem, index int, file *FileInfo) *NestedAtRule {
	body := NewRuleset(CreateEmptySelectors(index, file), rules, index, file)
	body.AllowImports = true
	return &NestedAtRule{
		Meta:     Pos(index, file),
		Family:   family,
		Features: features,
		Rules:    []RuleBodyItem{body},
	}
}

func (m *NestedAtRule) Kind() Kind    { return familyInfo[m.Family].kind }
func (m *NestedAtRule) ruleBodyItem() {}

func (m *NestedAtRule) Accept(v *Visitor) {
	v.VisitNode(&m.Features)
	v.VisitRules(&m.Rules)
}

// Body returns the body ruleset.
func (m *NestedAtRule) Body() *Ruleset {
	if len(m.Rules) == 0 {
		return nil
	}
	r, _ := m.Rules[0].(*Ruleset)
	return r
}

// FeatureList returns the comma separated feature entries.
func (m *NestedAtRule) FeatureList() []Node {
	switch f := m.Features.(type) {
	case nil:
		return nil
	case *Value:
		return f.Value
	default:
		return []Node{f}
	}
}

func (m *NestedAtRule) GenCSS(ctx *GenContext, out Output) {
	out.Add(m.Family.Keyword(), m.File, m.Index)
	if m.Features != nil && len(m.FeatureList()) > 0 {
		out.Add(" ", nil, -1)
		m.Features.GenCSS(ctx, out)
	}
	OutputRuleset(ctx, out, m.Rules)
}

// AtRule is any other at-rule: @font-face, @keyframes, @supports,
// @charset, @namespace and unknown ones.
type AtRule struct {
	Meta
	Name  string
	Value Node

	// Rules holds the body ruleset; nil for statement at-rules.
	Rules []RuleBodyItem

	// Declarations holds the flat body of a simple block, one made only of
	// declarations that needs no selector joining.
	Declarations []RuleBodyItem
	SimpleBlock  bool

	// IsRooted at-rules are not joined with enclosing selectors.
	IsRooted bool
}

// NewAtRule returns an at-rule. body is nil for statement at-rules.
func NewAtRule(name string, value Node, body *Ruleset, isRooted bool, index int, file *FileInfo) *AtRule {
	a := &AtRule{Meta: Pos(index, file), Name: name, Value: value, IsRooted: isRooted}
	if body == nil {
		return a
	}
	if DeclarationsBlock(body.Rules, false) && !isRooted && value == nil {
		a.SimpleBlock = true
		a.Declarations = body.Rules
		return a
	}
	body.Selectors = CreateEmptySelectors(index, file)
	a.Rules = []RuleBodyItem{body}
	return a
}

// DeclarationsBlock reports whether rules contain only declarations and
// comments. Unless mergeable is set, merging declarations disqualify the block.
func DeclarationsBlock(rules []RuleBodyItem, mergeable bool) bool {
	for _, r := range rules {
		switch t := r.(type) {
		case *Comment:
		case *Declaration:
			if !mergeable && t.Merge != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (a *AtRule) Kind() Kind    { return KindAtRule }
func (a *AtRule) ruleBodyItem() {}

func (a *AtRule) Accept(v *Visitor) {
	v.VisitNode(&a.Value)
	if a.Rules != nil {
		v.VisitRules(&a.Rules)
	}
	if a.Declarations != nil {
		v.VisitRules(&a.Declarations)
	}
}

// IsCharset reports whether the rule is @charset.
func (a *AtRule) IsCharset() bool {
	return a.Name == "@charset"
}

// Body returns the body ruleset, or nil for statements and simple blocks.
func (a *AtRule) Body() *Ruleset {
	if len(a.Rules) == 0 {
		return nil
	}
	r, _ := a.Rules[0].(*Ruleset)
	return r
}

func (a *AtRule) GenCSS(ctx *GenContext, out Output) {
	out.Add(a.Name, a.File, a.Index)
	if a.Value != nil {
		out.Add(" ", nil, -1)
		a.Value.GenCSS(ctx, out)
	}
	switch {
	case a.SimpleBlock:
		OutputRuleset(ctx, out, a.Declarations)
	case a.Rules != nil:
		OutputRuleset(ctx, out, a.Rules)
	default:
		out.Add(";", nil, -1)
	}
}

// OutputRuleset writes a braced at-rule body.
func OutputRuleset(ctx *GenContext, out Output, rules []RuleBodyItem) {
	ctx.TabLevel++
	defer func() { ctx.TabLevel-- }()

	if ctx.Compress {
		out.Add("{", nil, -1)
		for _, r := range rules {
			r.GenCSS(ctx, out)
		}
		out.Add("}", nil, -1)
		return
	}

	tabSet := "\n" + strings.Repeat("  ", ctx.TabLevel-1)
	tabRule := tabSet + "  "
	if len(rules) == 0 {
		out.Add(" {"+tabSet+"}", nil, -1)
		return
	}
	out.Add(" {"+tabRule, nil, -1)
	rules[0].GenCSS(ctx, out)
	for _, r := range rules[1:] {
		out.Add(tabRule, nil, -1)
		r.GenCSS(ctx, out)
	}
	out.Add(tabSet+"}", nil, -1)
}

// ImportOptions are the keywords of an @import (reference), (inline), ...
type ImportOptions struct {
	Reference bool
	Inline    bool
	Less      *bool // Explicit (less) or (css); nil when unset
	Multiple  bool
	Optional  bool
}

var cssImportPath = regexp.MustCompile(`[#.&?]css([?;].*)?$`)

// Import is an @import rule.
type Import struct {
	Meta
	Path     Node
	Features Node
	Options  ImportOptions
	CSS      bool // Emitted as a plain CSS @import
}

// NewImport returns an import and decides whether it stays a CSS import.
func NewImport(path Node, features Node, options ImportOptions, index int, file *FileInfo) *Import {
	imp := &Import{Meta: Pos(index, file), Path: path, Features: features, Options: options}
	if options.Less != nil || options.Inline {
		imp.CSS = (options.Less != nil && !*options.Less) || options.Inline
	} else if p, ok := imp.PathString(); ok && cssImportPath.MatchString(p) {
		imp.CSS = true
	}
	return imp
}

// PathString returns the literal import path.
func (i *Import) PathString() (string, bool) {
	switch p := i.Path.(type) {
	case *Quoted:
		return p.Value, true
	case *URL:
		if q, ok := p.Value.(*Quoted); ok {
			return q.Value, true
		}
		if a, ok := p.Value.(*Anonymous); ok {
			return a.Value, true
		}
	case *Anonymous:
		return p.Value, true
	}
	return "", false
}

func (i *Import) Kind() Kind    { return KindImport }
func (i *Import) ruleBodyItem() {}

func (i *Import) Accept(v *Visitor) {
	v.VisitNode(&i.Features)
	v.VisitNode(&i.Path)
}

func (i *Import) GenCSS(ctx *GenContext, out Output) {
	if !i.CSS || (i.File != nil && i.File.Reference) {
		return
	}
	out.Add("@import ", i.File, i.Index)
	i.Path.GenCSS(ctx, out)
	if i.Features != nil {
		out.Add(" ", nil, -1)
		i.Features.GenCSS(ctx, out)
	}
	out.Add(";", nil, -1)
}
