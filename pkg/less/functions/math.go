package functions

import (
	"math"

	"mercator-hq/cascade/pkg/less/ast"
)

func registerMath(r *Registry) {
	unary := func(fn func(float64) float64) Func {
		return func(c *Call, args []ast.Node) (any, error) {
			if err := requireArgs(args, 1, c.Name); err != nil {
				return nil, err
			}
			d, err := dimension(args[0], c.Name)
			if err != nil {
				return nil, err
			}
			return ast.NewDimension(fn(d.Value), d.Unit.Clone(), c.Index, c.File), nil
		}
	}
	r.Add("ceil", unary(math.Ceil))
	r.Add("floor", unary(math.Floor))
	r.Add("sqrt", unary(math.Sqrt))
	r.Add("abs", unary(math.Abs))

	r.Add("round", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "round"); err != nil {
			return nil, err
		}
		d, err := dimension(args[0], "round")
		if err != nil {
			return nil, err
		}
		places := 0.0
		if len(args) > 1 {
			p, err := dimension(args[1], "round")
			if err != nil {
				return nil, err
			}
			places = p.Value
		}
		scale := math.Pow(10, places)
		return ast.NewDimension(math.Round(d.Value*scale)/scale, d.Unit.Clone(), c.Index, c.File), nil
	})

	r.Add("percentage", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "percentage"); err != nil {
			return nil, err
		}
		d, err := dimension(args[0], "percentage")
		if err != nil {
			return nil, err
		}
		return ast.NewDimension(d.Unify().Value*100, ast.ParseUnit("%"), c.Index, c.File), nil
	})

	r.Add("pi", func(c *Call, _ []ast.Node) (any, error) {
		return ast.NewDimension(math.Pi, ast.Unit{}, c.Index, c.File), nil
	})

	r.Add("mod", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "mod"); err != nil {
			return nil, err
		}
		a, err := dimension(args[0], "mod")
		if err != nil {
			return nil, err
		}
		b, err := dimension(args[1], "mod")
		if err != nil {
			return nil, err
		}
		return ast.NewDimension(math.Mod(a.Value, b.Value), a.Unit.Clone(), c.Index, c.File), nil
	})

	r.Add("pow", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "pow"); err != nil {
			return nil, err
		}
		x, xok := args[0].(*ast.Dimension)
		y, yok := args[1].(*ast.Dimension)
		if !xok || !yok {
			return nil, argumentError("arguments must be numbers")
		}
		return ast.NewDimension(math.Pow(x.Value, y.Value), x.Unit.Clone(), c.Index, c.File), nil
	})

	r.Add("unit", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "unit"); err != nil {
			return nil, err
		}
		d, err := dimension(args[0], "unit")
		if err != nil {
			return nil, err
		}
		unit := ""
		if len(args) > 1 {
			if k, ok := args[1].(*ast.Keyword); ok {
				unit = k.Value
			} else {
				unit = ast.CSS(args[1])
			}
		}
		return ast.NewDimension(d.Value, ast.ParseUnit(unit), c.Index, c.File), nil
	})

	r.Add("get-unit", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "get-unit"); err != nil {
			return nil, err
		}
		d, err := dimension(args[0], "get-unit")
		if err != nil {
			return nil, err
		}
		return ast.NewAnonymous(d.Unit.String(), c.Index, c.File), nil
	})

	r.Add("convert", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "convert"); err != nil {
			return nil, err
		}
		d, err := dimension(args[0], "convert")
		if err != nil {
			return nil, err
		}
		return d.ConvertToUnit(stringValue(args[1])), nil
	})

	r.Add("min", func(c *Call, args []ast.Node) (any, error) {
		return extreme(c, args, true)
	})
	r.Add("max", func(c *Call, args []ast.Node) (any, error) {
		return extreme(c, args, false)
	})
}

// extreme implements min() and max(). Lists are flattened; unitless values
// are comparable with any unit, other units must be convertible into each
// other.
func extreme(c *Call, args []ast.Node, isMin bool) (any, error) {
	if len(args) == 0 {
		return nil, argumentError("one or more arguments required")
	}
	var flat []ast.Node
	for _, a := range args {
		flat = append(flat, listItems(a)...)
	}

	var best *ast.Dimension
	var bestUnified *ast.Dimension
	unit := ""
	for _, a := range flat {
		d, ok := a.(*ast.Dimension)
		if !ok {
			continue
		}
		unified := d.Unify()
		u := unified.Unit.String()
		if u != "" {
			if unit != "" && unit != u {
				return nil, argumentError("incompatible types")
			}
			unit = u
		}
		if best == nil ||
			(isMin && unified.Value < bestUnified.Value) ||
			(!isMin && unified.Value > bestUnified.Value) {
			best, bestUnified = d, unified
		}
	}
	if best == nil {
		return nil, nil
	}
	return best, nil
}
