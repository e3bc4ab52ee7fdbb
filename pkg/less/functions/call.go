package functions

import (
	"fmt"
	"math"
	"strconv"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// Env is the view of the evaluator a callable gets.
type Env interface {
	// Eval evaluates a node in the caller's scope.
	Eval(n ast.Node) (ast.Node, error)
	// EvalCondition evaluates n as a guard condition.
	EvalCondition(n ast.Node) (bool, error)
	// DefaultValue returns the value default() takes in the guard being
	// matched, nil outside mixin guards.
	DefaultValue() (ast.Node, error)
	// StrictUnits reports whether unit mismatches are errors.
	StrictUnits() bool
	// Compress reports whether output is compressed.
	Compress() bool
}

// Call describes one invocation of a function.
type Call struct {
	Name  string
	Index int
	File  *ast.FileInfo
	Env   Env
}

// Errorf returns a typed error for the call.
func (c *Call) Errorf(errType lesserrors.ErrorType, format string, args ...any) error {
	return lesserrors.Newf(errType, format, args...)
}

// argumentError is the error most builtins return for bad input.
func argumentError(format string, args ...any) error {
	return lesserrors.Newf(lesserrors.ErrorTypeArgument, format, args...)
}

// Normalize turns a callable's result into a node. ok is false when the
// callable declined and the call should be emitted as written. Primitive
// results become literal text at index in file.
func Normalize(result any, index int, file *ast.FileInfo) (ast.Node, bool) {
	var n ast.Node
	switch v := result.(type) {
	case nil:
		return nil, false
	case ast.Node:
		if isNilNode(v) {
			return nil, false
		}
		n = v
	case bool:
		n = ast.NewAnonymous("", index, file)
	case string:
		n = ast.NewAnonymous(v, index, file)
	case float64:
		n = ast.NewAnonymous(formatFloat(v), index, file)
	case int:
		n = ast.NewAnonymous(strconv.Itoa(v), index, file)
	case fmt.Stringer:
		n = ast.NewAnonymous(v.String(), index, file)
	default:
		n = ast.NewAnonymous(fmt.Sprint(v), index, file)
	}
	// Returned nodes may be arguments shared with the template, so only
	// positionless results are stamped.
	if m := n.Metadata(); m.Index < 0 && m.File == nil {
		m.Index = index
		m.File = file
	}
	return n, true
}

func isNilNode(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Anonymous:
		return v == nil
	case *ast.Dimension:
		return v == nil
	case *ast.Color:
		return v == nil
	case *ast.Keyword:
		return v == nil
	case *ast.Quoted:
		return v == nil
	}
	return false
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
