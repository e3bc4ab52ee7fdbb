package less

import (
	"context"
	"sync"

	"mercator-hq/cascade/pkg/less/ast"
	"mercator-hq/cascade/pkg/less/compiler"
	"mercator-hq/cascade/pkg/less/parser"
)

var (
	defaultOnce     sync.Once
	defaultCompiler *compiler.Compiler
	defaultErr      error
)

func getDefault() (*compiler.Compiler, error) {
	defaultOnce.Do(func() {
		defaultCompiler, defaultErr = compiler.New(compiler.DefaultConfig(), compiler.Options{})
	})
	return defaultCompiler, defaultErr
}

// Compile is a convenience function that parses and renders a stylesheet file
// with the default configuration.
func Compile(path string) (string, error) {
	c, err := getDefault()
	if err != nil {
		return "", err
	}
	res, err := c.Compile(context.Background(), path)
	if err != nil {
		return "", err
	}
	return res.CSS, nil
}

// CompileBytes is a convenience function that renders a stylesheet held in
// memory. filename is used in error positions and as the base for imports.
func CompileBytes(data []byte, filename string) (string, error) {
	c, err := getDefault()
	if err != nil {
		return "", err
	}
	res, err := c.CompileBytes(context.Background(), data, filename)
	if err != nil {
		return "", err
	}
	return res.CSS, nil
}

// Parse parses a stylesheet file without rendering it.
// The returned template can be passed to Render any number of times.
func Parse(path string) (*ast.Ruleset, error) {
	return parser.NewParser().Parse(path)
}

// Render renders a parsed template with modify variables applied.
func Render(ctx context.Context, tree *ast.Ruleset, vars map[string]string) (string, error) {
	c, err := getDefault()
	if err != nil {
		return "", err
	}
	res, err := c.Render(ctx, tree, vars)
	if err != nil {
		return "", err
	}
	return res.CSS, nil
}
