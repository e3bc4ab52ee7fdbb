// Package compiler renders stylesheet templates to CSS.
//
// A render runs these stages:
//
//  1. Parse the YAML tree document (skipped by Render, which takes a parsed template)
//  2. Preload imported files in parallel when the importer supports it
//  3. Add global variables before and modify variables after the template rules
//  4. Evaluate variables, mixins, guards, operations and functions
//  5. Join selectors, apply extends and prepare the tree for output
//  6. Print CSS, recording source segments when source maps are enabled
//  7. Optionally minify the CSS with esbuild
//
// With Options.Tracer set, each render is a "cascade.render" span and the
// stages from preload on are its child spans.
//
// # Usage
//
//	comp, err := compiler.NewFromConfig(cfg, compiler.Options{
//	    Logger:  logger.Slog(),
//	    Metrics: collector,
//	    Tracer:  tracer,
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := comp.Compile(ctx, "styles/site.yaml")
//
// Templates are immutable once parsed. A single parsed tree can be rendered
// concurrently with different variables:
//
//	tree, _ := comp.Parse("theme.yaml")
//	dark, _ := comp.Render(ctx, tree, map[string]string{"bg": "#000"})
//	light, _ := comp.Render(ctx, tree, map[string]string{"bg": "#fff"})
//
// Errors are *errors.Error values from pkg/less/errors with a code frame
// attached whenever the source of the failing file can be read. A render
// that exceeds Config.Timeout fails with a *TimeoutError.
package compiler
