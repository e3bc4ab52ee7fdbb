package parser

import (
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
)

var (
	reDimension = regexp.MustCompile(`^([+-]?\d*\.?\d+)(%|[a-zA-Z_]+)?`)
	reHexColor  = regexp.MustCompile(`^#[A-Fa-f0-9]+`)
	reKeyword   = regexp.MustCompile(`^\[?(?:[\w-]|[^\x00-\x7f]|\\(?:[A-Fa-f0-9]{1,6} ?|[^A-Fa-f0-9]))+\]?`)
	reVariable  = regexp.MustCompile(`^@@?[\w-]+`)
	reProperty  = regexp.MustCompile(`^\$@?[\w-]+`)
	reCallName  = regexp.MustCompile(`^([\w-]+|%)\(`)
	reUnicode   = regexp.MustCompile(`^U\+[0-9a-fA-F?]+(?:-[0-9a-fA-F?]+)?`)
	reAssign    = regexp.MustCompile(`^([\w.]+)\s*=([^=]|$)`)
	reMixinName = regexp.MustCompile(`^[#.](?:[\w-]|\\(?:[A-Fa-f0-9]{1,6} ?|[^A-Fa-f0-9]))+`)
	reLookup    = regexp.MustCompile(`^\[\s*((?:@@?|\$@?|\$)?[\w-]*)\s*\]`)
	reImportant = regexp.MustCompile(`\s*!\s*important\s*$`)
)

// ParseValue parses a declaration value: a comma separated list of space
// separated expressions.
func ParseValue(text string, index int, file *ast.FileInfo) (ast.Node, error) {
	p := newTextParser(text, index, file)
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if err := p.finish("value"); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, p.errorf("expected a value")
	}
	return v, nil
}

// splitImportant removes a trailing !important flag from a value.
func splitImportant(text string) (string, string) {
	loc := reImportant.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[:loc[0]], "!important"
}

func (p *textParser) value() (ast.Node, error) {
	start := p.pos
	var exprs []ast.Node
	for {
		p.skipSpace()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if e == nil {
			break
		}
		exprs = append(exprs, e)
		p.skipSpace()
		if !p.char(',') {
			break
		}
	}
	if len(exprs) == 0 {
		return nil, nil
	}
	return ast.NewValue(exprs, p.indexAt(start), p.file), nil
}

// expression parses space separated entities. A "/" that is not a division,
// as in font: 12px/1.5 under strict math, stays a literal separator.
func (p *textParser) expression() (ast.Node, error) {
	start := p.pos
	var entities []ast.Node
	for {
		p.skipSpace()
		if p.eof() || strings.IndexByte(",);]}!", p.cur()) >= 0 {
			break
		}
		e, err := p.addition()
		if err != nil {
			return nil, err
		}
		if e == nil {
			if e, err = p.entity(); err != nil {
				return nil, err
			}
		}
		if e == nil {
			break
		}
		entities = append(entities, e)

		save := p.pos
		p.skipSpace()
		if p.cur() == '/' && p.at(1) != '*' && p.at(1) != '/' {
			entities = append(entities, ast.NewAnonymous("/", p.index(), p.file))
			p.pos++
		} else {
			p.pos = save
		}
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return ast.NewExpression(entities, p.indexAt(start), p.file), nil
}

func (p *textParser) addition() (ast.Node, error) {
	m, err := p.multiplication()
	if m == nil || err != nil {
		return nil, err
	}
	var operation ast.Node
	for {
		save := p.pos
		isSpaced := p.skipSpace()
		op := ""
		switch c := p.cur(); {
		case (c == '+' || c == '-') && isSpace(p.at(1)):
			op = string(c)
			p.pos++
		case (c == '+' || c == '-') && !isSpaced:
			op = string(c)
			p.pos++
		}
		if op == "" {
			p.pos = save
			break
		}
		idx := p.indexAt(save)
		p.skipSpace()
		a, err := p.multiplication()
		if err != nil {
			return nil, err
		}
		if a == nil {
			p.pos = save
			break
		}
		left := operation
		if left == nil {
			left = m
		}
		markParensInOp(left)
		markParensInOp(a)
		operation = ast.NewOperation(op, left, a, isSpaced, idx, p.file)
	}
	if operation != nil {
		return operation, nil
	}
	return m, nil
}

func (p *textParser) multiplication() (ast.Node, error) {
	m, err := p.operand()
	if m == nil || err != nil {
		return nil, err
	}
	var operation ast.Node
	for {
		save := p.pos
		isSpaced := p.skipSpace()
		if strings.HasPrefix(p.rest(), "/*") || strings.HasPrefix(p.rest(), "//") {
			p.pos = save
			break
		}
		op := ""
		switch {
		case p.str("./"):
			op = "./"
		case p.char('/'):
			op = "/"
		case p.char('*'):
			op = "*"
		}
		if op == "" {
			p.pos = save
			break
		}
		idx := p.indexAt(save)
		p.skipSpace()
		a, err := p.operand()
		if err != nil {
			return nil, err
		}
		if a == nil {
			p.pos = save
			break
		}
		left := operation
		if left == nil {
			left = m
		}
		markParensInOp(left)
		markParensInOp(a)
		operation = ast.NewOperation(op, left, a, isSpaced, idx, p.file)
	}
	if operation != nil {
		return operation, nil
	}
	return m, nil
}

func markParensInOp(n ast.Node) {
	if e, ok := n.(*ast.Expression); ok {
		e.ParensInOp = true
	}
}

// operand parses what may take part in arithmetic.
func (p *textParser) operand() (ast.Node, error) {
	start := p.pos
	negate := false
	if p.cur() == '-' && (p.at(1) == '@' || p.at(1) == '(' || p.at(1) == '$') {
		negate = true
		p.pos++
	}

	o, err := p.sub()
	if err != nil {
		return nil, err
	}
	if o == nil {
		o = p.dimension()
	}
	if o == nil {
		o = p.color()
	}
	if o == nil {
		if o, err = p.variable(); err != nil {
			return nil, err
		}
	}
	if o == nil {
		o = p.property()
	}
	if o == nil {
		if o, err = p.call(); err != nil {
			return nil, err
		}
	}
	if o == nil {
		if o, err = p.quoted(); err != nil {
			return nil, err
		}
	}
	if o == nil {
		o = p.colorKeyword()
	}
	if o == nil {
		if o, err = p.mixinLookup(); err != nil {
			return nil, err
		}
	}
	if o == nil {
		p.pos = start
		return nil, nil
	}
	if negate {
		markParensInOp(o)
		o = &ast.Negative{Meta: ast.Pos(p.indexAt(start), p.file), Value: o}
	}
	return o, nil
}

// sub parses a parenthesized operation.
func (p *textParser) sub() (ast.Node, error) {
	start := p.pos
	if !p.char('(') {
		return nil, nil
	}
	p.skipSpace()
	a, err := p.addition()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if a == nil || !p.char(')') {
		p.pos = start
		return nil, nil
	}
	e := ast.NewExpression([]ast.Node{a}, p.indexAt(start), p.file)
	e.Parens = true
	return e, nil
}

// entity parses a single value that is not part of an operation.
func (p *textParser) entity() (ast.Node, error) {
	if n := p.dimension(); n != nil {
		return n, nil
	}
	if n := p.color(); n != nil {
		return n, nil
	}
	if n, err := p.quoted(); n != nil || err != nil {
		return n, err
	}
	if n := p.unicodeDescriptor(); n != nil {
		return n, nil
	}
	if n, err := p.variable(); n != nil || err != nil {
		return n, err
	}
	if n, err := p.url(); n != nil || err != nil {
		return n, err
	}
	if n := p.property(); n != nil {
		return n, nil
	}
	if n, err := p.call(); n != nil || err != nil {
		return n, err
	}
	if n := p.keyword(); n != nil {
		return n, nil
	}
	if n, err := p.mixinLookup(); n != nil || err != nil {
		return n, err
	}
	return p.parenList()
}

// parenList parses a parenthesized list that is not an operation, such as
// (1 2 3).
func (p *textParser) parenList() (ast.Node, error) {
	start := p.pos
	if !p.char('(') {
		return nil, nil
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if v == nil || !p.char(')') {
		p.pos = start
		return nil, nil
	}
	e := ast.NewExpression([]ast.Node{v}, p.indexAt(start), p.file)
	e.Parens = true
	return e, nil
}

func (p *textParser) dimension() ast.Node {
	if c := p.cur(); c != '-' && c != '+' && c != '.' && (c < '0' || c > '9') {
		return nil
	}
	start := p.pos
	m := p.match(reDimension)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		p.pos = start
		return nil
	}
	return ast.NewDimension(v, ast.ParseUnit(m[2]), p.indexAt(start), p.file)
}

func (p *textParser) color() ast.Node {
	if p.cur() != '#' {
		return nil
	}
	start := p.pos
	m := reHexColor.FindString(p.rest())
	if m == "" || (len(m) < len(p.rest()) && isIdentChar(p.rest()[len(m)])) {
		return nil
	}
	switch len(m) - 1 {
	case 3, 4, 6, 8:
	default:
		return nil
	}
	c, ok := ast.ParseHexColor(m, p.indexAt(start), p.file)
	if !ok {
		return nil
	}
	p.pos += len(m)
	return c
}

func (p *textParser) colorKeyword() ast.Node {
	start := p.pos
	m := p.match(reKeyword)
	if m == nil {
		return nil
	}
	if c, ok := ast.ColorFromKeyword(m[0], p.indexAt(start), p.file); ok {
		return c
	}
	p.pos = start
	return nil
}

func (p *textParser) keyword() ast.Node {
	start := p.pos
	m := p.match(reKeyword)
	if m == nil {
		return nil
	}
	if c, ok := ast.ColorFromKeyword(m[0], p.indexAt(start), p.file); ok {
		return c
	}
	return ast.NewKeyword(m[0], p.indexAt(start), p.file)
}

func (p *textParser) quoted() (ast.Node, error) {
	start := p.pos
	escaped := false
	if p.cur() == '~' && (p.at(1) == '"' || p.at(1) == '\'') {
		escaped = true
		p.pos++
	}
	q := p.cur()
	if q != '"' && q != '\'' {
		p.pos = start
		return nil, nil
	}
	for i := p.pos + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '\\':
			i++
		case q:
			value := p.src[p.pos+1 : i]
			p.pos = i + 1
			return ast.NewQuoted(string(q), value, escaped, p.indexAt(start), p.file), nil
		}
	}
	p.pos = start
	return nil, p.errorf("unterminated string")
}

func (p *textParser) unicodeDescriptor() ast.Node {
	start := p.pos
	m := p.match(reUnicode)
	if m == nil {
		return nil
	}
	return &ast.UnicodeDescriptor{Meta: ast.Pos(p.indexAt(start), p.file), Value: m[0]}
}

// variable parses @name, @@name and lookups on them such as @config[@width].
func (p *textParser) variable() (ast.Node, error) {
	start := p.pos
	m := p.match(reVariable)
	if m == nil {
		return nil, nil
	}
	if p.cur() == '(' {
		p.pos = start
		return nil, nil
	}
	v := ast.NewVariable(m[0], p.indexAt(start), p.file)
	if p.cur() != '[' {
		return v, nil
	}
	lookups, err := p.lookups()
	if err != nil {
		return nil, err
	}
	return ast.NewNamespaceValue(v, lookups, p.indexAt(start), p.file), nil
}

func (p *textParser) property() ast.Node {
	start := p.pos
	m := p.match(reProperty)
	if m == nil {
		return nil
	}
	return &ast.Property{Meta: ast.Pos(p.indexAt(start), p.file), Name: m[0]}
}

func (p *textParser) lookups() ([]string, error) {
	var out []string
	for p.cur() == '[' {
		m := p.match(reLookup)
		if m == nil {
			return nil, p.errorf("malformed lookup")
		}
		out = append(out, m[1])
	}
	return out, nil
}

// mixinLookup parses a value read out of a mixin call: .mixin()[@width] or
// #ns.mixin[].
func (p *textParser) mixinLookup() (ast.Node, error) {
	if c := p.cur(); c != '.' && c != '#' {
		return nil, nil
	}
	start := p.pos
	elements, args, ok, err := p.mixinCallSignature()
	if err != nil {
		return nil, err
	}
	if !ok || p.cur() != '[' {
		p.pos = start
		return nil, nil
	}
	lookups, err := p.lookups()
	if err != nil {
		return nil, err
	}
	call := ast.NewMixinCall(elements, args, false, p.indexAt(start), p.file)
	return ast.NewNamespaceValue(call, lookups, p.indexAt(start), p.file), nil
}

func (p *textParser) url() (ast.Node, error) {
	if len(p.rest()) < 4 || !strings.EqualFold(p.rest()[:4], "url(") {
		return nil, nil
	}
	start := p.pos
	p.pos += 4
	p.skipSpace()

	var v ast.Node
	var err error
	if v, err = p.quoted(); err != nil {
		return nil, err
	}
	if v == nil {
		if v, err = p.variable(); err != nil {
			return nil, err
		}
	}
	if v == nil {
		v = p.property()
	}
	if v == nil {
		rawStart := p.pos
		for !p.eof() && p.cur() != ')' {
			if p.cur() == '\\' {
				p.pos++
			}
			p.pos++
		}
		v = ast.NewAnonymous(strings.TrimSpace(p.src[rawStart:p.pos]), p.indexAt(rawStart), p.file)
	}
	p.skipSpace()
	if !p.char(')') {
		return nil, p.errorf("missing closing ) for url()")
	}
	return &ast.URL{Meta: ast.Pos(p.indexAt(start), p.file), Value: v}, nil
}

// call parses a function call. The first argument of if() and boolean() is
// a condition.
func (p *textParser) call() (ast.Node, error) {
	m := reCallName.FindStringSubmatch(p.rest())
	if m == nil {
		return nil, nil
	}
	name := m[1]
	lower := strings.ToLower(name)
	if lower == "url" {
		return nil, nil
	}
	start := p.pos
	p.pos += len(m[0])

	var args []ast.Node
	for i := 0; ; i++ {
		p.skipSpace()
		if p.cur() == ')' {
			break
		}
		arg, err := p.callArg(i == 0 && (lower == "if" || lower == "boolean"))
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return nil, p.unexpected("arguments of " + name + "()")
		}
		args = append(args, arg)
		p.skipSpace()
		if !p.char(',') {
			break
		}
	}
	if !p.char(')') {
		return nil, p.errorf("missing closing `)` for %s()", name)
	}
	return ast.NewCall(name, args, p.indexAt(start), p.file), nil
}

func (p *textParser) callArg(condition bool) (ast.Node, error) {
	if condition {
		save := p.pos
		c, err := p.condition(false)
		if err == nil && c != nil {
			p.skipSpace()
			if p.cur() == ',' || p.cur() == ')' {
				return c, nil
			}
		}
		p.pos = save
	}
	if m := reAssign.FindStringSubmatch(p.rest()); m != nil {
		start := p.pos
		p.pos += len(m[0]) - len(m[2])
		p.skipSpace()
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		if v != nil {
			return &ast.Assignment{Meta: ast.Pos(p.indexAt(start), p.file), Key: m[1], Value: v}, nil
		}
		p.pos = start
	}
	return p.expression()
}
