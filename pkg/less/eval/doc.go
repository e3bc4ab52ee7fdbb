// Package eval evaluates parsed stylesheet templates.
//
// Evaluation resolves variables and properties, runs functions and
// arithmetic, expands mixin and detached ruleset calls, splices imports and
// hoists nested @media-like blocks. The input template is never modified:
// every render builds a new tree, and all per-render bookkeeping (closures,
// recursion guards, the default() state, import-once tracking, extend ids)
// lives in the Evaluator.
//
// # Scopes
//
// Lookups walk a chain of frames, nearest first. Each ruleset pushes itself
// while its body is evaluated; mixin calls evaluate their body under the
// definition, the bound parameters, the definition's closure and finally the
// caller's chain.
//
// # Mixin Matching
//
// A call collects every definition in the first frame that has one, filters
// them by arity and pattern arguments, and classifies each guard by its
// dependence on default():
//
//	.m(@a) when (default()) { ... }   // used only when nothing else matches
//	.m(@a) when (@a > 0)    { ... }
//
// # Basic Usage
//
//	ev := eval.New(eval.Options{Math: eval.MathParensDivision})
//	out, err := ev.Eval(ctx, root)
//	if err != nil {
//	    return err
//	}
//
// The evaluated tree still needs the visitor passes (selector joining,
// extends, CSS cleanup) before it can be printed.
package eval
