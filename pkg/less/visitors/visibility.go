package visitors

import (
	"mercator-hq/cascade/pkg/less/ast"
)

// SetTreeVisibility marks the output nodes of the tree visible (or hidden).
// The walk stops at nodes inside a reference context, so content brought in
// by reference imports keeps an unknown visibility and is dropped unless an
// extend or a mixin call makes it visible.
//
// Only structural nodes are marked. Values are shared with the template the
// tree was evaluated from and are never written.
func SetTreeVisibility(root ast.Node, visible bool) {
	mark := func(n ast.Node, args *ast.VisitArgs) ast.Node {
		m := n.Metadata()
		if m.BlocksVisibility() {
			args.VisitDeeper = false
			return n
		}
		if visible {
			m.EnsureVisibility()
		} else {
			m.EnsureInvisibility()
		}
		return n
	}
	leaf := func(n ast.Node, args *ast.VisitArgs) ast.Node {
		mark(n, args)
		args.VisitDeeper = false
		return n
	}

	v := ast.NewVisitor(false)
	v.On(ast.KindRuleset, mark)
	v.On(ast.KindSelector, mark)
	v.On(ast.KindExtend, mark)
	v.On(ast.KindElement, leaf)
	v.On(ast.KindDeclaration, leaf)
	v.On(ast.KindComment, leaf)
	v.On(ast.KindImport, leaf)
	v.On(ast.KindMixinDefinition, leaf)

	block := func(n ast.Node, args *ast.VisitArgs) ast.Node {
		mark(n, args)
		if !args.VisitDeeper {
			return n
		}
		args.VisitDeeper = false
		switch t := n.(type) {
		case *ast.NestedAtRule:
			v.VisitRules(&t.Rules)
		case *ast.AtRule:
			v.VisitRules(&t.Rules)
			v.VisitRules(&t.Declarations)
		}
		return n
	}
	for _, k := range nestedKinds {
		v.On(k, block)
	}
	v.On(ast.KindAtRule, block)

	v.Visit(root)
}
