package visitors

import (
	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// PrepareOutput rewrites an evaluated, joined and extended tree into the
// shape that is printed: nested rulesets and at-rules are moved up next to
// their parent, and everything that produces no CSS is removed (variables,
// mixin definitions, extends, silent comments, invisible rulesets and
// referenced content). Merged properties are combined and exact duplicate
// declarations dropped. Only the first @charset is kept.
func PrepareOutput(root *ast.Ruleset, ctx *ast.GenContext) (*ast.Ruleset, error) {
	if ctx == nil {
		ctx = &ast.GenContext{}
	}
	p := &outputPreparer{ctx: ctx}
	v := ast.NewVisitor(true)
	p.v = v

	v.On(ast.KindDeclaration, p.visitDeclaration)
	v.On(ast.KindMixinDefinition, remove)
	v.On(ast.KindExtend, remove)
	v.On(ast.KindComment, p.visitComment)
	v.On(ast.KindImport, p.visitImport)
	v.On(ast.KindAnonymous, p.visitAnonymous)
	v.On(ast.KindRuleset, p.visitRuleset)
	v.On(ast.KindAtRule, p.visitAtRule)
	for _, k := range nestedKinds {
		v.On(k, p.visitNestedAtRule)
	}

	out := v.Visit(root)
	if p.err != nil {
		return nil, p.err
	}
	if rs, ok := out.(*ast.Ruleset); ok {
		return rs, nil
	}
	return root, nil
}

type outputPreparer struct {
	v       *ast.Visitor
	ctx     *ast.GenContext
	charset bool
	err     error
}

func (p *outputPreparer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func remove(ast.Node, *ast.VisitArgs) ast.Node {
	return nil
}

func (p *outputPreparer) visitDeclaration(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	d := n.(*ast.Declaration)
	if d.BlocksVisibility() || d.Variable {
		return nil
	}
	return d
}

func (p *outputPreparer) visitComment(n ast.Node, _ *ast.VisitArgs) ast.Node {
	c := n.(*ast.Comment)
	if c.BlocksVisibility() || c.IsSilent(p.ctx) {
		return nil
	}
	return c
}

func (p *outputPreparer) visitImport(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	if n.Metadata().BlocksVisibility() {
		return nil
	}
	return n
}

func (p *outputPreparer) visitAnonymous(n ast.Node, _ *ast.VisitArgs) ast.Node {
	if n.Metadata().BlocksVisibility() {
		return nil
	}
	return n
}

func (p *outputPreparer) visitNestedAtRule(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	m := n.(*ast.NestedAtRule)
	p.v.VisitRules(&m.Rules)
	return p.resolveVisibility(m, &m.Rules)
}

func (p *outputPreparer) visitAtRule(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	a := n.(*ast.AtRule)

	if len(a.Rules) == 0 {
		if a.SimpleBlock {
			p.v.VisitRules(&a.Declarations)
		}
		if a.BlocksVisibility() {
			return nil
		}
		if a.IsCharset() {
			// @charset must come first, later ones are dropped
			if p.charset {
				return nil
			}
			p.charset = true
		}
		return a
	}

	p.v.VisitRules(&a.Rules)
	if body := a.Body(); body != nil && len(body.Rules) > 0 {
		body.Rules = ast.MergeRules(body.Rules)
	}
	return p.resolveVisibility(a, &a.Rules)
}

// resolveVisibility decides whether an at-rule is output. A referenced
// at-rule is kept only when something inside it was made visible, and then
// only with its visible children.
func (p *outputPreparer) resolveVisibility(n ast.Node, rules *[]ast.RuleBodyItem) ast.Node {
	m := n.Metadata()
	if !m.BlocksVisibility() {
		if len(*rules) == 0 {
			return nil
		}
		return n
	}
	if len(*rules) == 0 {
		return nil
	}
	body, ok := (*rules)[0].(*ast.Ruleset)
	if !ok {
		return nil
	}
	visible := body.Rules[:0:0]
	for _, r := range body.Rules {
		if r.Metadata().IsVisible() {
			visible = append(visible, r)
		}
	}
	body.Rules = visible
	if len(body.Rules) == 0 {
		return nil
	}
	m.EnsureVisibility()
	m.RemoveVisibilityBlock()
	return n
}

func (p *outputPreparer) visitRuleset(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	rs := n.(*ast.Ruleset)

	if rs.FirstRoot {
		for _, r := range rs.Rules {
			if d, ok := r.(*ast.Declaration); ok && !d.Variable {
				p.fail(d.Errorf(lesserrors.ErrorTypeSyntax, "Properties must be inside selector blocks. They cannot be in the root"))
				return n
			}
		}
	}

	var hoisted []ast.Node
	if !rs.Root {
		compilePaths(rs)

		// Nested blocks are output after their parent, at the same level.
		kept := make([]ast.RuleBodyItem, 0, len(rs.Rules))
		for _, r := range rs.Rules {
			if hasBody(r) {
				if out := p.v.Visit(r); out != nil {
					hoisted = append(hoisted, out)
				}
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) > 0 {
			rs.Rules = kept
			p.v.VisitRules(&rs.Rules)
		} else {
			rs.Rules = nil
		}
	} else {
		p.v.VisitRules(&rs.Rules)
	}

	if len(rs.Rules) > 0 {
		rs.Rules = ast.MergeRules(rs.Rules)
		rs.Rules = p.removeDuplicates(rs.Rules)
	}

	var out []ast.Node
	if rs.IsVisibleRuleset() {
		rs.EnsureVisibility()
		out = append(out, rs)
	}
	out = append(out, hoisted...)
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return ast.NewFragment(out...)
}

func hasBody(n ast.Node) bool {
	switch t := n.(type) {
	case *ast.Ruleset, *ast.NestedAtRule, *ast.MixinDefinition:
		return true
	case *ast.AtRule:
		return len(t.Rules) > 0
	}
	return false
}

// compilePaths keeps the paths that contain a visible, output selector. The
// descendant combinator of a path's first element is dropped.
func compilePaths(rs *ast.Ruleset) {
	if rs.Paths == nil {
		return
	}
	paths := rs.Paths[:0:0]
	for _, path := range rs.Paths {
		if len(path) == 0 {
			continue
		}
		if els := path[0].Elements; len(els) > 0 && els[0].Combinator.Value == " " {
			first := *els[0]
			first.Combinator = ast.NewCombinator("")
			sel := path[0].CreateDerived(append([]*ast.Element{&first}, els[1:]...), nil, nil)
			path = append([]*ast.Selector{sel}, path[1:]...)
		}
		for _, s := range path {
			if s.IsVisible() && s.IsOutput() {
				paths = append(paths, path)
				break
			}
		}
	}
	rs.Paths = paths
}

// removeDuplicates drops declarations that repeat an identical later
// declaration of the same property.
func (p *outputPreparer) removeDuplicates(rules []ast.RuleBodyItem) []ast.RuleBodyItem {
	seen := make(map[string][]string)
	drop := make(map[int]bool)
	for i := len(rules) - 1; i >= 0; i-- {
		d, ok := rules[i].(*ast.Declaration)
		if !ok {
			continue
		}
		css, err := ast.ToCSS(d, p.ctx)
		if err != nil {
			p.fail(d.Stamp(err))
			return rules
		}
		list := seen[d.Name]
		for _, prev := range list {
			if prev == css {
				drop[i] = true
				break
			}
		}
		if !drop[i] {
			seen[d.Name] = append(list, css)
		}
	}
	if len(drop) == 0 {
		return rules
	}
	out := make([]ast.RuleBodyItem, 0, len(rules)-len(drop))
	for i, r := range rules {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}
