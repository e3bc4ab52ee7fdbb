package functions

import (
	"mercator-hq/cascade/pkg/less/ast"
)

// listItems returns the entries of a list value, or the value itself.
func listItems(n ast.Node) []ast.Node {
	switch v := n.(type) {
	case *ast.Value:
		return v.Value
	case *ast.Expression:
		return v.Value
	}
	return []ast.Node{n}
}

// stringValue returns the text of a string-like value.
func stringValue(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Quoted:
		return v.Value
	case *ast.Keyword:
		return v.Value
	case *ast.Anonymous:
		return v.Value
	}
	return ast.CSS(n)
}

// number returns the numeric value of n; percentages are scaled to [0,1].
func number(n ast.Node) (float64, error) {
	d, ok := n.(*ast.Dimension)
	if !ok {
		return 0, argumentError("color functions take numbers as parameters")
	}
	if d.Unit.Is("%") {
		return d.Value / 100, nil
	}
	return d.Value, nil
}

// scaled returns n, mapping percentages onto [0,size].
func scaled(n ast.Node, size float64) (float64, error) {
	if d, ok := n.(*ast.Dimension); ok && d.Unit.Is("%") {
		return d.Value * size / 100, nil
	}
	return number(n)
}

func dimension(n ast.Node, fn string) (*ast.Dimension, error) {
	d, ok := n.(*ast.Dimension)
	if !ok {
		if _, isOp := n.(*ast.Operation); isOp {
			return nil, argumentError("the first argument to %s must be a number. Have you forgotten parenthesis?", fn)
		}
		return nil, argumentError("argument must be a number")
	}
	return d, nil
}

func color(n ast.Node) (*ast.Color, error) {
	c, ok := n.(*ast.Color)
	if !ok {
		return nil, argumentError("Argument cannot be evaluated to a color")
	}
	return c, nil
}

func arg(args []ast.Node, i int) ast.Node {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func requireArgs(args []ast.Node, n int, fn string) error {
	if len(args) < n {
		return argumentError("%s expects %d argument(s), got %d", fn, n, len(args))
	}
	return nil
}
