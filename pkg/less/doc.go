// Package less compiles stylesheet templates written as YAML trees into CSS.
//
// The language is a superset of CSS with variables, nested rulesets, mixins
// with guards, operations, extends, imports and a library of builtin
// functions.
//
// # Architecture
//
// The package is organized into subpackages:
//
// - ast: node types, CSS generation and the visitor framework
// - parser: YAML tree loading and parsing of selectors, values and conditions
// - eval: variable scoping, mixin resolution, guards and operations
// - functions: the builtin function library and its registry
// - visitors: post-evaluation passes (selector joining, extends, cleanup)
// - imports: file resolution, caching and parallel preloading of imports
// - compiler: the pipeline tying the stages together
// - errors: positioned errors with code frames
//
// # Basic Usage
//
//	css, err := less.Compile("styles/site.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(css)
//
// Render a template several times with different variables:
//
//	tree, err := less.Parse("theme.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dark, _ := less.Render(ctx, tree, map[string]string{"background": "#111"})
//	light, _ := less.Render(ctx, tree, map[string]string{"background": "#fafafa"})
//
// The helpers in this package use the default configuration. Use
// compiler.New for timeouts, compression, source maps, custom importers or
// metrics.
package less
