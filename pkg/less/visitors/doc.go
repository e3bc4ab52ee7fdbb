// Package visitors implements the passes run over an evaluated tree before
// it is printed.
//
// The passes run in a fixed order, each one relying on the previous:
//
//  1. JoinSelectors computes the full selector paths of nested rulesets,
//     replacing "&" with the parent selectors.
//  2. SetTreeVisibility marks everything outside reference imports visible.
//  3. ProcessExtends adds the paths of extending selectors to the rulesets
//     they match, following chains of extends.
//  4. PrepareOutput flattens the tree and removes what produces no CSS.
//
// Run applies all four:
//
//	out, err := visitors.Run(evaluated, &ast.GenContext{}, visitors.Options{
//	    NextExtendID: ev.NextExtendID,
//	})
//	if err != nil {
//	    return err
//	}
//	css, err := ast.ToCSS(out, &ast.GenContext{})
//
// The passes write to the evaluated tree only. Value nodes shared with the
// template are never modified, so a template can be rendered concurrently.
package visitors
