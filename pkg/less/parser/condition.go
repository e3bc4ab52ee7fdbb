package parser

import (
	"regexp"

	"mercator-hq/cascade/pkg/less/ast"
)

var reCompare = regexp.MustCompile(`^(?:>=|<=|=<|=>|[<=>])`)

// ParseCondition parses a guard such as (@a > 0) and (@b), (@c).
func ParseCondition(text string, index int, file *ast.FileInfo) (ast.Node, error) {
	p := newTextParser(text, index, file)
	p.skipSpace()
	c, err := p.conditions()
	if err != nil {
		return nil, err
	}
	if err := p.finish("guard"); err != nil {
		return nil, err
	}
	return c, nil
}

// conditions parses a guard list. Commas mean "or".
func (p *textParser) conditions() (ast.Node, error) {
	start := p.pos
	a, err := p.condition(true)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, p.errorf("expected condition")
	}
	for {
		save := p.pos
		p.skipSpace()
		if !p.char(',') {
			p.pos = save
			return a, nil
		}
		p.skipSpace()
		b, err := p.condition(true)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, p.errorf("expected condition after ','")
		}
		a = ast.NewCondition("or", a, b, false, p.indexAt(start), p.file)
	}
}

func (p *textParser) condition(needsParens bool) (ast.Node, error) {
	start := p.pos
	result, err := p.conditionAnd(needsParens)
	if result == nil || err != nil {
		return nil, err
	}
	save := p.pos
	p.skipSpace()
	if !p.word("or") {
		p.pos = save
		return result, nil
	}
	p.skipSpace()
	next, err := p.condition(needsParens)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, p.errorf("expected condition after 'or'")
	}
	return ast.NewCondition("or", result, next, false, p.indexAt(start), p.file), nil
}

func (p *textParser) conditionAnd(needsParens bool) (ast.Node, error) {
	start := p.pos
	result, err := p.insideCondition(needsParens)
	if result == nil || err != nil {
		return nil, err
	}
	save := p.pos
	p.skipSpace()
	if !p.word("and") {
		p.pos = save
		return result, nil
	}
	p.skipSpace()
	next, err := p.conditionAnd(needsParens)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, p.errorf("expected condition after 'and'")
	}
	return ast.NewCondition("and", result, next, false, p.indexAt(start), p.file), nil
}

func (p *textParser) insideCondition(needsParens bool) (ast.Node, error) {
	p.skipSpace()
	if p.word("not") {
		p.skipSpace()
		c, err := p.parenthesisCondition(needsParens)
		if c == nil || err != nil {
			return nil, err
		}
		if cond, ok := c.(*ast.Condition); ok {
			cond.Negate = !cond.Negate
		}
		return c, nil
	}
	c, err := p.parenthesisCondition(needsParens)
	if err != nil {
		return nil, err
	}
	if c == nil && !needsParens {
		return p.atomicCondition()
	}
	return c, nil
}

func (p *textParser) parenthesisCondition(needsParens bool) (ast.Node, error) {
	start := p.pos
	if !p.char('(') {
		return nil, nil
	}
	p.skipSpace()

	body, err := p.condition(needsParens)
	if err == nil && body != nil {
		p.skipSpace()
		if p.char(')') {
			return body, nil
		}
	}
	p.pos = start + 1
	p.skipSpace()

	body, err = p.atomicCondition()
	if err != nil {
		return nil, err
	}
	if body == nil {
		p.pos = start
		return nil, nil
	}
	p.skipSpace()
	if !p.char(')') {
		return nil, p.errorf("expected ')' got '%c'", p.cur())
	}
	return body, nil
}

func (p *textParser) atomicCondition() (ast.Node, error) {
	start := p.pos
	a, err := p.conditionOperand()
	if a == nil || err != nil {
		return nil, err
	}
	save := p.pos
	p.skipSpace()
	m := p.match(reCompare)
	if m == nil {
		p.pos = save
		return ast.NewCondition("=", a, ast.NewKeyword("true", -1, nil), false, p.indexAt(start), p.file), nil
	}
	op := m[0]
	switch op {
	case "=<":
		op = "<="
	case "=>":
		op = ">="
	}
	p.skipSpace()
	b, err := p.conditionOperand()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, p.errorf("expected expression after '%s'", m[0])
	}
	return ast.NewCondition(op, a, b, false, p.indexAt(start), p.file), nil
}

func (p *textParser) conditionOperand() (ast.Node, error) {
	if n, err := p.addition(); n != nil || err != nil {
		return n, err
	}
	if n := p.keyword(); n != nil {
		return n, nil
	}
	if n, err := p.quoted(); n != nil || err != nil {
		return n, err
	}
	return p.mixinLookup()
}
