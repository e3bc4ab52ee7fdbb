package functions

import (
	"mercator-hq/cascade/pkg/less/ast"
)

func registerTypes(r *Registry) {
	isa := func(kind ast.Kind) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 1, c.Name); err != nil {
				return nil, err
			}
			return ast.Bool(args[0].Kind() == kind), nil
		}
	}
	isUnit := func(unit string) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 1, c.Name); err != nil {
				return nil, err
			}
			d, ok := args[0].(*ast.Dimension)
			return ast.Bool(ok && d.Unit.Is(unit)), nil
		}
	}

	r.Add("isruleset", isa(ast.KindDetachedRuleset))
	r.Add("iscolor", isa(ast.KindColor))
	r.Add("isnumber", isa(ast.KindDimension))
	r.Add("isstring", isa(ast.KindQuoted))
	r.Add("iskeyword", isa(ast.KindKeyword))
	r.Add("isurl", isa(ast.KindURL))
	r.Add("ispixel", isUnit("px"))
	r.Add("ispercentage", isUnit("%"))
	r.Add("isem", isUnit("em"))

	r.Add("isunit", func(c *Call, args []ast.Node) (any, error) {
		if len(args) < 2 {
			return nil, argumentError("missing the required second argument to isunit.")
		}
		var unit string
		switch u := args[1].(type) {
		case *ast.Keyword:
			unit = u.Value
		case *ast.Quoted:
			unit = u.Value
		case *ast.Anonymous:
			unit = u.Value
		default:
			return nil, argumentError("Second argument to isunit should be a unit or a string.")
		}
		d, ok := args[0].(*ast.Dimension)
		return ast.Bool(ok && d.Unit.Is(unit)), nil
	})
}
