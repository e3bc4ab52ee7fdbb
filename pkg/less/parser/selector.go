package parser

import (
	"regexp"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
)

var (
	rePercentElement = regexp.MustCompile(`^(?:\d+\.\d+|\d+)%`)
	reAttrKey        = regexp.MustCompile(`^(?:[_A-Za-z0-9*-]*\|)?(?:[_A-Za-z0-9-]|\\.|@\{[\w-]+\})+`)
	reAttrOp         = regexp.MustCompile(`^[|~*$^]?=`)
	reAttrCif        = regexp.MustCompile(`^\s*([iIsS])\s*\]`)
)

// ParseSelectors parses a comma separated selector list, including extends
// and a trailing "when" guard.
func ParseSelectors(text string, index int, file *ast.FileInfo) ([]*ast.Selector, error) {
	p := newTextParser(text, index, file)
	sels, err := p.selectors()
	if err != nil {
		return nil, err
	}
	if err := p.finish("selector"); err != nil {
		return nil, err
	}
	return sels, nil
}

func (p *textParser) selectors() ([]*ast.Selector, error) {
	var out []*ast.Selector
	for {
		p.skipSpace()
		s, err := p.selector()
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, p.unexpected("selector")
		}
		out = append(out, s)
		p.skipSpace()
		if !p.char(',') {
			return out, nil
		}
	}
}

func (p *textParser) selector() (*ast.Selector, error) {
	p.skipSpace()
	start := p.pos
	var (
		elements []*ast.Element
		extends  []*ast.Extend
		cond     ast.Node
	)
	for {
		save := p.pos
		p.skipSpace()
		switch {
		case strings.HasPrefix(p.rest(), ":extend("):
			ext, err := p.extendList()
			if err != nil {
				return nil, err
			}
			extends = append(extends, ext...)
			continue
		case cond == nil && p.word("when"):
			c, err := p.conditions()
			if err != nil {
				return nil, err
			}
			cond = c
			continue
		}
		p.pos = save

		e, err := p.element(len(elements) == 0)
		if err != nil {
			return nil, err
		}
		if e == nil {
			p.pos = save
			break
		}
		if cond != nil {
			return nil, p.errorf("CSS guard can only be used at the end of selector")
		}
		elements = append(elements, e)
	}
	if len(elements) == 0 && len(extends) == 0 {
		p.pos = start
		return nil, nil
	}
	return ast.NewSelector(elements, extends, cond, p.indexAt(start), p.file), nil
}

// element parses one compound part with the combinator in front of it.
func (p *textParser) element(first bool) (*ast.Element, error) {
	save := p.pos
	ws := p.skipSpace()
	comb := ""
	switch c := p.cur(); {
	case c == '>' || c == '+' || c == '~' || (c == '|' && p.at(1) != '|'):
		comb = string(c)
		p.pos++
		p.skipSpace()
	case ws && !first:
		comb = " "
	}

	start := p.pos
	idx := p.indexAt(start)
	switch c := p.cur(); {
	case c == '&':
		p.pos++
		return ast.NewElement(comb, "&", idx, p.file), nil
	case c == '*':
		p.pos++
		return ast.NewElement(comb, "*", idx, p.file), nil
	case c == '[':
		attr, err := p.attribute()
		if err != nil {
			return nil, err
		}
		return ast.NewNodeElement(comb, attr, false, idx, p.file), nil
	case c == '(':
		return p.parenElement(comb, save)
	}

	if m := p.match(rePercentElement); m != nil {
		return ast.NewElement(comb, m[0], idx, p.file), nil
	}
	text := p.compound()
	if text == "" {
		p.pos = save
		return nil, nil
	}
	if strings.Contains(text, "@{") {
		q := ast.NewQuoted("", text, true, idx, p.file)
		return ast.NewNodeElement(comb, q, true, idx, p.file), nil
	}
	return ast.NewElement(comb, text, idx, p.file), nil
}

// compound reads one simple selector: an optional ".", "#" or ":" prefix
// followed by identifier characters and @{var} interpolations.
func (p *textParser) compound() string {
	start := p.pos
	switch p.cur() {
	case '.', '#':
		p.pos++
	case ':':
		for p.cur() == ':' {
			p.pos++
		}
	}
	prefix := p.pos
loop:
	for !p.eof() {
		c := p.cur()
		switch {
		case isIdentChar(c):
			p.pos++
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos += 2
		case c == '@' && p.at(1) == '{':
			end := strings.IndexByte(p.rest(), '}')
			if end < 0 {
				p.pos = start
				return ""
			}
			p.pos += end + 1
		default:
			break loop
		}
	}
	if p.pos == prefix {
		p.pos = start
		return ""
	}
	return p.src[start:p.pos]
}

// parenElement parses the arguments of a pseudo class, such as (2n+1) or
// (.a, &.b). Plain arguments stay text; ones that reference the parent or
// interpolate are parsed as a selector.
func (p *textParser) parenElement(comb string, save int) (*ast.Element, error) {
	start := p.pos
	idx := p.indexAt(start)
	inner, ok := p.balanced()
	if !ok {
		return nil, p.errorf("missing closing ')'")
	}
	if !strings.ContainsAny(inner, "&@()") {
		return ast.NewElement(comb, "("+inner+")", idx, p.file), nil
	}
	sub := newTextParser(inner, p.indexAt(start+1), p.file)
	sel, err := sub.selector()
	if err != nil {
		return nil, err
	}
	if sel == nil || sub.finish("selector") != nil {
		p.pos = save
		return nil, nil
	}
	paren := &ast.Paren{Meta: ast.Pos(idx, p.file), Value: sel}
	return ast.NewNodeElement(comb, paren, false, idx, p.file), nil
}

func (p *textParser) attribute() (ast.Node, error) {
	start := p.pos
	if !p.char('[') {
		return nil, nil
	}
	p.skipSpace()
	key := p.match(reAttrKey)
	if key == nil {
		return nil, p.errorf("malformed attribute selector")
	}
	p.skipSpace()

	op := ""
	var value ast.Node
	if m := p.match(reAttrOp); m != nil {
		op = m[0]
		p.skipSpace()
		q, err := p.quoted()
		if err != nil {
			return nil, err
		}
		switch {
		case q != nil:
			value = q
		default:
			vstart := p.pos
			for !p.eof() && (isIdentChar(p.cur()) || p.cur() == '@' || p.cur() == '{' || p.cur() == '}' || p.cur() == '\\') {
				p.pos++
			}
			if p.pos == vstart {
				return nil, p.errorf("missing attribute value")
			}
			text := p.src[vstart:p.pos]
			if strings.Contains(text, "@{") {
				value = ast.NewQuoted("", text, true, p.indexAt(vstart), p.file)
			} else {
				value = ast.NewKeyword(text, p.indexAt(vstart), p.file)
			}
		}
	}

	cif := ""
	if m := p.match(reAttrCif); m != nil {
		cif = m[1]
	} else {
		p.skipSpace()
		if !p.char(']') {
			return nil, p.errorf("missing closing ']'")
		}
	}
	return ast.NewAttribute(key[0], op, value, cif, p.indexAt(start), p.file), nil
}

// extendList parses :extend(.a all, .b).
func (p *textParser) extendList() ([]*ast.Extend, error) {
	start := p.pos
	p.pos += len(":extend")
	inner, ok := p.balanced()
	if !ok {
		return nil, p.errorf("missing closing ')' for :extend")
	}
	return parseExtendTargets(inner, p.indexAt(start+len(":extend(")), p.file)
}

// parseExtendTargets parses the comma separated targets of an extend, each
// optionally followed by "all".
func parseExtendTargets(text string, index int, file *ast.FileInfo) ([]*ast.Extend, error) {
	p := newTextParser(text, index, file)
	var out []*ast.Extend
	for {
		p.skipSpace()
		start := p.pos
		var elements []*ast.Element
		for {
			save := p.pos
			p.skipSpace()
			if p.word("all") {
				p.pos = save
				break
			}
			p.pos = save
			e, err := p.element(len(elements) == 0)
			if err != nil {
				return nil, err
			}
			if e == nil {
				break
			}
			elements = append(elements, e)
		}
		if len(elements) == 0 {
			return nil, p.errorf("missing target selector for :extend()")
		}
		p.skipSpace()
		option := ""
		if p.word("all") {
			option = "all"
		}
		sel := ast.NewSelector(elements, nil, nil, p.indexAt(start), file)
		out = append(out, ast.NewExtend(sel, option, 0, p.indexAt(start), file))
		p.skipSpace()
		if !p.char(',') {
			break
		}
	}
	if err := p.finish(":extend()"); err != nil {
		return nil, err
	}
	return out, nil
}
