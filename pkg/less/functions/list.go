package functions

import (
	"mercator-hq/cascade/pkg/less/ast"
)

func registerList(r *Registry) {
	r.Add("length", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "length"); err != nil {
			return nil, err
		}
		return ast.NewDimension(float64(len(listItems(args[0]))), ast.Unit{}, c.Index, c.File), nil
	})

	r.Add("extract", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "extract"); err != nil {
			return nil, err
		}
		idx, ok := args[1].(*ast.Dimension)
		if !ok {
			return nil, argumentError("extract index must be a number")
		}
		items := listItems(args[0])
		i := int(idx.Value) - 1
		if i < 0 || i >= len(items) {
			return nil, nil
		}
		return items[i], nil
	})

	r.Add("range", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "range"); err != nil {
			return nil, err
		}
		from, step := 1.0, 1.0
		to, err := dimension(args[0], "range")
		if err != nil {
			return nil, err
		}
		if len(args) > 1 {
			if to, err = dimension(args[1], "range"); err != nil {
				return nil, err
			}
			from = args[0].(*ast.Dimension).Value
			if len(args) > 2 {
				s, err := dimension(args[2], "range")
				if err != nil {
					return nil, err
				}
				step = s.Value
			}
		}
		if step <= 0 {
			return nil, argumentError("range step must be positive")
		}
		var list []ast.Node
		for i := from; i <= to.Value; i += step {
			list = append(list, ast.NewDimension(i, to.Unit.Clone(), c.Index, c.File))
		}
		return ast.NewExpression(list, c.Index, c.File), nil
	})
}
