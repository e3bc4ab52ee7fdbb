package functions

import (
	"mercator-hq/cascade/pkg/less/ast"
)

func registerBoolean(r *Registry) {
	r.Add("default", func(c *Call, _ []ast.Node) (any, error) {
		v, err := c.Env.DefaultValue()
		if err != nil || v == nil {
			return nil, err
		}
		return v, nil
	})

	r.Add("boolean", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "boolean"); err != nil {
			return nil, err
		}
		return ast.Bool(truthy(args[0])), nil
	})

	r.AddRaw("if", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 2, "if"); err != nil {
			return nil, err
		}
		ok, err := c.Env.EvalCondition(args[0])
		if err != nil {
			return nil, err
		}
		if ok {
			return c.Env.Eval(args[1])
		}
		if len(args) > 2 {
			return c.Env.Eval(args[2])
		}
		return ast.NewAnonymous("", c.Index, c.File), nil
	})

	r.AddRaw("isdefined", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "isdefined"); err != nil {
			return nil, err
		}
		if _, err := c.Env.Eval(args[0]); err != nil {
			return ast.False(), nil
		}
		return ast.True(), nil
	})
}

// truthy reports whether an evaluated value counts as true: everything but
// the false keyword does.
func truthy(n ast.Node) bool {
	if k, ok := n.(*ast.Keyword); ok && k.Value == "false" {
		return false
	}
	return n != nil
}
