package parser

import (
	"regexp"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
)

var reFeatureName = regexp.MustCompile(`^(\*?-?[_a-zA-Z0-9-]+)\s*:`)

// ParseMediaFeatures parses a media or container query list such as
// screen and (min-width: @tablet), print.
func ParseMediaFeatures(text string, index int, file *ast.FileInfo) (ast.Node, error) {
	p := newTextParser(text, index, file)
	start := p.pos
	var features []ast.Node
	for {
		p.skipSpace()
		f, err := p.mediaFeature()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, p.unexpected("media query")
		}
		features = append(features, f)
		p.skipSpace()
		if !p.char(',') {
			break
		}
	}
	if err := p.finish("media query"); err != nil {
		return nil, err
	}
	return ast.NewValue(features, p.indexAt(start), file), nil
}

// mediaFeature parses one query: keywords, variables and parenthesized
// conditions. (name: value) becomes an inline declaration so its value is
// evaluated; anything else in parentheses is kept as written.
func (p *textParser) mediaFeature() (ast.Node, error) {
	start := p.pos
	var nodes []ast.Node
	for {
		p.skipSpace()
		if p.eof() || p.cur() == ',' {
			break
		}
		if n := p.keyword(); n != nil {
			nodes = append(nodes, n)
			continue
		}
		n, err := p.variable()
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
			continue
		}
		if n, err = p.quoted(); err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
			continue
		}
		if p.cur() != '(' {
			break
		}
		paren, err := p.featureParen()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, paren)
	}
	if len(nodes) == 0 {
		p.pos = start
		return nil, nil
	}
	return ast.NewExpression(nodes, p.indexAt(start), p.file), nil
}

func (p *textParser) featureParen() (ast.Node, error) {
	start := p.pos
	idx := p.indexAt(start)
	inner, ok := p.balanced()
	if !ok {
		return nil, p.errorf("badly formed media feature definition")
	}
	end := p.pos
	innerIdx := p.indexAt(start + 1)

	sub := newTextParser(inner, innerIdx, p.file)
	sub.skipSpace()
	if m := sub.match(reFeatureName); m != nil {
		sub.skipSpace()
		v, err := sub.value()
		if err == nil && v != nil && sub.finish("media feature") == nil {
			d := ast.NewDeclaration(m[1], v, "", "", innerIdx, p.file)
			d.Inline = true
			return &ast.Paren{Meta: ast.Pos(idx, p.file), Value: d}, nil
		}
	} else if v, err := sub.value(); err == nil && v != nil && sub.finish("media feature") == nil {
		return &ast.Paren{Meta: ast.Pos(idx, p.file), Value: v}, nil
	}

	p.pos = end
	raw := ast.NewAnonymous("("+strings.TrimSpace(inner)+")", idx, p.file)
	return raw, nil
}
