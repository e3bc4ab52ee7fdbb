package parser

import (
	"mercator-hq/cascade/pkg/less/ast"
)

// ParseMixinCall parses a call such as #ns > .mixin(1px; @color: red) !important.
func ParseMixinCall(text string, index int, file *ast.FileInfo) (*ast.MixinCall, error) {
	text, important := splitImportant(text)
	p := newTextParser(text, index, file)
	p.skipSpace()
	start := p.pos
	elements, args, ok, err := p.mixinCallSignature()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.errorf("expected a mixin call")
	}
	if err := p.finish("mixin call"); err != nil {
		return nil, err
	}
	return ast.NewMixinCall(elements, args, important != "", p.indexAt(start), file), nil
}

// ParseMixinDefinition parses a definition signature such as
// .m(@a; @b: 2; @rest...) when (@a > 0). The guard may instead be given
// separately in guard.
func ParseMixinDefinition(text string, rules []ast.RuleBodyItem, index int, file *ast.FileInfo) (*ast.MixinDefinition, error) {
	p := newTextParser(text, index, file)
	p.skipSpace()
	start := p.pos
	m := p.match(reMixinName)
	if m == nil {
		return nil, p.errorf("mixin name must start with '.' or '#'")
	}
	name := m[0]

	var (
		params   []ast.MixinParam
		variadic bool
	)
	p.skipSpace()
	if p.cur() == '(' {
		var err error
		params, variadic, err = p.mixinParams()
		if err != nil {
			return nil, err
		}
	}

	var cond ast.Node
	p.skipSpace()
	if p.word("when") {
		c, err := p.conditions()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if err := p.finish("mixin definition"); err != nil {
		return nil, err
	}
	return ast.NewMixinDefinition(name, params, rules, cond, variadic, p.indexAt(start), file), nil
}

// mixinCallSignature parses the elements and arguments of a mixin call. ok
// is false when the input does not start with a mixin name.
func (p *textParser) mixinCallSignature() ([]*ast.Element, []ast.MixinArg, bool, error) {
	start := p.pos
	var elements []*ast.Element
	comb := ""
	for {
		idx := p.index()
		m := p.match(reMixinName)
		if m == nil {
			break
		}
		elements = append(elements, ast.NewElement(comb, m[0], idx, p.file))
		save := p.pos
		p.skipSpace()
		if p.char('>') {
			comb = ">"
			p.skipSpace()
			continue
		}
		p.pos = save
		comb = ""
	}
	if len(elements) == 0 {
		p.pos = start
		return nil, nil, false, nil
	}

	var args []ast.MixinArg
	save := p.pos
	p.skipSpace()
	if p.cur() == '(' {
		var err error
		if args, err = p.mixinArgs(); err != nil {
			return nil, nil, false, err
		}
	} else {
		p.pos = save
	}
	return elements, args, true, nil
}

// semicolonSeparated reports whether the argument list at the cursor uses
// semicolons between arguments, in which case commas build lists.
func (p *textParser) semicolonSeparated() bool {
	depth := 0
	var quote byte
	for i := p.pos; i < len(p.src); i++ {
		c := p.src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return false
			}
		case c == ';' && depth == 1:
			return true
		}
	}
	return false
}

// argValue parses one argument. With semicolon separators a comma list is a
// single argument.
func (p *textParser) argValue(semi bool) (ast.Node, error) {
	if !semi {
		return p.expression()
	}
	v, err := p.value()
	if v == nil || err != nil {
		return nil, err
	}
	if list, ok := v.(*ast.Value); ok && len(list.Value) == 1 {
		return list.Value[0], nil
	}
	return v, nil
}

func (p *textParser) separator(semi bool) bool {
	p.skipSpace()
	if semi {
		return p.char(';')
	}
	return p.char(',')
}

// mixinArgs parses (a; @name: b; @list...).
func (p *textParser) mixinArgs() ([]ast.MixinArg, error) {
	semi := p.semicolonSeparated()
	p.char('(')
	var args []ast.MixinArg
	for {
		p.skipSpace()
		if p.cur() == ')' {
			break
		}
		arg := ast.MixinArg{}
		save := p.pos
		if m := p.match(reVariable); m != nil {
			p.skipSpace()
			switch {
			case p.cur() == ':' && p.at(1) != ':':
				p.pos++
				p.skipSpace()
				arg.Name = m[0]
			case p.str("..."):
				arg.Value = ast.NewVariable(m[0], p.indexAt(save), p.file)
				arg.Expand = true
			default:
				p.pos = save
			}
		}
		if arg.Value == nil {
			v, err := p.argValue(semi)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, p.unexpected("mixin arguments")
			}
			arg.Value = v
		}
		args = append(args, arg)
		if !p.separator(semi) {
			break
		}
	}
	p.skipSpace()
	if !p.char(')') {
		return nil, p.errorf("missing closing ')' in mixin call")
	}
	return args, nil
}

// mixinParams parses the parameter list of a definition.
func (p *textParser) mixinParams() ([]ast.MixinParam, bool, error) {
	semi := p.semicolonSeparated()
	p.char('(')
	var (
		params   []ast.MixinParam
		variadic bool
	)
	for {
		p.skipSpace()
		if p.cur() == ')' {
			break
		}
		if variadic {
			return nil, false, p.errorf("variadic parameter must be the last one")
		}
		if p.str("...") {
			params = append(params, ast.MixinParam{Variadic: true})
			variadic = true
		} else if m := p.match(reVariable); m != nil {
			param := ast.MixinParam{Name: m[0]}
			p.skipSpace()
			switch {
			case p.str("..."):
				param.Variadic = true
				variadic = true
			case p.cur() == ':' && p.at(1) != ':':
				p.pos++
				p.skipSpace()
				v, err := p.argValue(semi)
				if err != nil {
					return nil, false, err
				}
				if v == nil {
					return nil, false, p.errorf("missing default value for %s", m[0])
				}
				param.Value = v
			}
			params = append(params, param)
		} else {
			v, err := p.argValue(semi)
			if err != nil {
				return nil, false, err
			}
			if v == nil {
				return nil, false, p.unexpected("mixin parameters")
			}
			params = append(params, ast.MixinParam{Value: v})
		}
		if !p.separator(semi) {
			break
		}
	}
	p.skipSpace()
	if !p.char(')') {
		return nil, false, p.errorf("missing closing ')' in mixin definition")
	}
	return params, variadic, nil
}
