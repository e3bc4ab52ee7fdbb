package ast

import (
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// Anonymous is raw text emitted verbatim.
type Anonymous struct {
	Meta
	Value       string
	RulesetLike bool // Inline import contents standing in for a rule
}

// NewAnonymous returns raw text at index in file.
func NewAnonymous(value string, index int, file *FileInfo) *Anonymous {
	return &Anonymous{Meta: Pos(index, file), Value: value}
}

func (a *Anonymous) Kind() Kind        { return KindAnonymous }
func (a *Anonymous) Accept(v *Visitor) {}
func (a *Anonymous) ruleBodyItem()     {}

func (a *Anonymous) GenCSS(ctx *GenContext, out Output) {
	if a.Value != "" {
		out.Add(a.Value, a.File, a.Index)
	}
}

// Keyword is a bare identifier.
type Keyword struct {
	Meta
	Value string
}

// NewKeyword returns an identifier node.
func NewKeyword(value string, index int, file *FileInfo) *Keyword {
	return &Keyword{Meta: Pos(index, file), Value: value}
}

// True and False return the boolean keywords produced by guard functions.
func True() *Keyword  { return NewKeyword("true", -1, nil) }
func False() *Keyword { return NewKeyword("false", -1, nil) }

// Bool returns the boolean keyword for b.
func Bool(b bool) *Keyword {
	if b {
		return True()
	}
	return False()
}

func (k *Keyword) Kind() Kind        { return KindKeyword }
func (k *Keyword) Accept(v *Visitor) {}

func (k *Keyword) GenCSS(ctx *GenContext, out Output) {
	if k.Value == "%" {
		ctx.Fail(k.Errorf(lesserrors.ErrorTypeSyntax, "Invalid %% without number"))
		return
	}
	out.Add(k.Value, k.File, k.Index)
}

// Quoted is a string literal. Escaped strings (~"...") are emitted without quotes.
type Quoted struct {
	Meta
	Quote   string
	Value   string
	Escaped bool
}

// NewQuoted returns a string literal.
func NewQuoted(quote, value string, escaped bool, index int, file *FileInfo) *Quoted {
	return &Quoted{Meta: Pos(index, file), Quote: quote, Value: value, Escaped: escaped}
}

func (q *Quoted) Kind() Kind        { return KindQuoted }
func (q *Quoted) Accept(v *Visitor) {}

func (q *Quoted) GenCSS(ctx *GenContext, out Output) {
	if !q.Escaped {
		out.Add(q.Quote, q.File, q.Index)
	}
	out.Add(q.Value, nil, -1)
	if !q.Escaped {
		out.Add(q.Quote, nil, -1)
	}
}

// URL is a url(...) value.
type URL struct {
	Meta
	Value Node
}

func (u *URL) Kind() Kind { return KindURL }

func (u *URL) Accept(v *Visitor) {
	v.VisitNode(&u.Value)
}

func (u *URL) GenCSS(ctx *GenContext, out Output) {
	out.Add("url(", u.File, u.Index)
	u.Value.GenCSS(ctx, out)
	out.Add(")", nil, -1)
}

// Expression is a space separated sequence of values.
type Expression struct {
	Meta
	Value      []Node
	NoSpacing  bool
	Parens     bool // Written inside parentheses
	ParensInOp bool // The parentheses are an operand of an operation
}

// NewExpression returns a space separated value list.
func NewExpression(values []Node, index int, file *FileInfo) *Expression {
	return &Expression{Meta: Pos(index, file), Value: values}
}

func (e *Expression) Kind() Kind { return KindExpression }

func (e *Expression) Accept(v *Visitor) {
	v.VisitNodes(&e.Value)
}

func (e *Expression) GenCSS(ctx *GenContext, out Output) {
	for i, n := range e.Value {
		n.GenCSS(ctx, out)
		if e.NoSpacing || i+1 >= len(e.Value) {
			continue
		}
		if a, ok := e.Value[i+1].(*Anonymous); ok && a.Value == "," {
			continue
		}
		out.Add(" ", nil, -1)
	}
}

// Value is a comma separated list of values.
type Value struct {
	Meta
	Value []Node
}

// NewValue returns a comma separated value list.
func NewValue(values []Node, index int, file *FileInfo) *Value {
	return &Value{Meta: Pos(index, file), Value: values}
}

func (l *Value) Kind() Kind { return KindValue }

func (l *Value) Accept(v *Visitor) {
	v.VisitNodes(&l.Value)
}

func (l *Value) GenCSS(ctx *GenContext, out Output) {
	for i, n := range l.Value {
		n.GenCSS(ctx, out)
		if i+1 < len(l.Value) {
			if ctx.Compress {
				out.Add(",", nil, -1)
			} else {
				out.Add(", ", nil, -1)
			}
		}
	}
}

// Paren wraps a value in parentheses.
type Paren struct {
	Meta
	Value Node
}

func (p *Paren) Kind() Kind { return KindParen }

func (p *Paren) Accept(v *Visitor) {
	v.VisitNode(&p.Value)
}

func (p *Paren) GenCSS(ctx *GenContext, out Output) {
	out.Add("(", p.File, p.Index)
	p.Value.GenCSS(ctx, out)
	out.Add(")", nil, -1)
}

// Negative is a unary minus applied to a value.
type Negative struct {
	Meta
	Value Node
}

func (n *Negative) Kind() Kind { return KindNegative }

func (n *Negative) Accept(v *Visitor) {
	v.VisitNode(&n.Value)
}

func (n *Negative) GenCSS(ctx *GenContext, out Output) {
	out.Add("-", n.File, n.Index)
	n.Value.GenCSS(ctx, out)
}

// Operation is a binary arithmetic operation.
type Operation struct {
	Meta
	Op       string
	Operands [2]Node
	IsSpaced bool
}

// NewOperation returns a binary operation.
func NewOperation(op string, a, b Node, spaced bool, index int, file *FileInfo) *Operation {
	return &Operation{Meta: Pos(index, file), Op: op, Operands: [2]Node{a, b}, IsSpaced: spaced}
}

func (o *Operation) Kind() Kind { return KindOperation }

func (o *Operation) Accept(v *Visitor) {
	v.VisitNode(&o.Operands[0])
	v.VisitNode(&o.Operands[1])
}

func (o *Operation) GenCSS(ctx *GenContext, out Output) {
	o.Operands[0].GenCSS(ctx, out)
	if o.IsSpaced {
		out.Add(" ", nil, -1)
	}
	out.Add(o.Op, nil, -1)
	if o.IsSpaced {
		out.Add(" ", nil, -1)
	}
	o.Operands[1].GenCSS(ctx, out)
}

// Variable is a reference to a variable (@name, or @@name for indirection).
type Variable struct {
	Meta
	Name string
}

// NewVariable returns a variable reference.
func NewVariable(name string, index int, file *FileInfo) *Variable {
	return &Variable{Meta: Pos(index, file), Name: name}
}

func (r *Variable) Kind() Kind        { return KindVariable }
func (r *Variable) Accept(v *Visitor) {}

func (r *Variable) GenCSS(ctx *GenContext, out Output) {
	out.Add(r.Name, r.File, r.Index)
}

// Property is a reference to a property value ($name).
type Property struct {
	Meta
	Name string
}

func (p *Property) Kind() Kind        { return KindProperty }
func (p *Property) Accept(v *Visitor) {}

func (p *Property) GenCSS(ctx *GenContext, out Output) {
	out.Add(p.Name, p.File, p.Index)
}

// Call is a function call. Calls to unknown functions are emitted as written.
type Call struct {
	Meta
	Name string
	Args []Node
}

// NewCall returns a function call node.
func NewCall(name string, args []Node, index int, file *FileInfo) *Call {
	return &Call{Meta: Pos(index, file), Name: name, Args: args}
}

// IsCalc reports whether the call is calc(), which suspends math for its arguments.
func (c *Call) IsCalc() bool {
	return c.Name == "calc"
}

func (c *Call) Kind() Kind { return KindCall }

func (c *Call) Accept(v *Visitor) {
	v.VisitNodes(&c.Args)
}

func (c *Call) GenCSS(ctx *GenContext, out Output) {
	out.Add(c.Name+"(", c.File, c.Index)
	for i, a := range c.Args {
		a.GenCSS(ctx, out)
		if i+1 < len(c.Args) {
			out.Add(", ", nil, -1)
		}
	}
	out.Add(")", nil, -1)
}

// Condition is a guard expression: a comparison or an and/or of conditions.
type Condition struct {
	Meta
	Op     string
	LValue Node
	RValue Node
	Negate bool
}

// NewCondition returns a guard condition.
func NewCondition(op string, l, r Node, negate bool, index int, file *FileInfo) *Condition {
	return &Condition{Meta: Pos(index, file), Op: op, LValue: l, RValue: r, Negate: negate}
}

func (c *Condition) Kind() Kind { return KindCondition }

func (c *Condition) Accept(v *Visitor) {
	v.VisitNode(&c.LValue)
	v.VisitNode(&c.RValue)
}

func (c *Condition) GenCSS(ctx *GenContext, out Output) {
	if c.Negate {
		out.Add("not ", c.File, c.Index)
	}
	out.Add("(", c.File, c.Index)
	c.LValue.GenCSS(ctx, out)
	out.Add(" "+c.Op+" ", nil, -1)
	c.RValue.GenCSS(ctx, out)
	out.Add(")", nil, -1)
}

// Comment is a block or line comment.
type Comment struct {
	Meta
	Value         string
	IsLineComment bool
}

// NewComment returns a comment node.
func NewComment(value string, lineComment bool, index int, file *FileInfo) *Comment {
	return &Comment{Meta: Pos(index, file), Value: value, IsLineComment: lineComment}
}

// IsSilent reports whether the comment is dropped from the output.
// Line comments are always silent; block comments are silent when compressing
// unless they start with /*!.
func (c *Comment) IsSilent(ctx *GenContext) bool {
	compressed := ctx != nil && ctx.Compress && !(len(c.Value) > 2 && c.Value[2] == '!')
	return c.IsLineComment || compressed
}

func (c *Comment) Kind() Kind        { return KindComment }
func (c *Comment) Accept(v *Visitor) {}
func (c *Comment) ruleBodyItem()     {}

func (c *Comment) GenCSS(ctx *GenContext, out Output) {
	out.Add(c.Value, c.File, c.Index)
}

// Assignment is a key=value pair, as found in legacy filter() arguments.
type Assignment struct {
	Meta
	Key   string
	Value Node
}

func (a *Assignment) Kind() Kind { return KindAssignment }

func (a *Assignment) Accept(v *Visitor) {
	v.VisitNode(&a.Value)
}

func (a *Assignment) GenCSS(ctx *GenContext, out Output) {
	out.Add(a.Key+"=", a.File, a.Index)
	a.Value.GenCSS(ctx, out)
}

// UnicodeDescriptor is a unicode-range value such as U+0025-00FF.
type UnicodeDescriptor struct {
	Meta
	Value string
}

func (u *UnicodeDescriptor) Kind() Kind        { return KindUnicodeDescriptor }
func (u *UnicodeDescriptor) Accept(v *Visitor) {}

func (u *UnicodeDescriptor) GenCSS(ctx *GenContext, out Output) {
	out.Add(u.Value, u.File, u.Index)
}
