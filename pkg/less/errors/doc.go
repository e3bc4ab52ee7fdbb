// Package errors provides the error taxonomy shared by every stage of the
// stylesheet compiler.
//
// Errors carry a source position (file plus byte index) so that a reporting
// layer can render a code frame. The evaluator only attaches and propagates
// positions; Locate and WithContext turn them into line/column information and
// surrounding source lines when the source text is available.
//
// # Error Types
//
// ErrorTypeName: undefined variable, property or mixin, recursive self-reference
//
// ErrorTypeRuntime: ambiguous default(), no matching mixin definition,
// operation on incompatible types
//
// ErrorTypeArgument: a builtin function received the wrong number or kind of arguments
//
// ErrorTypeSyntax: malformed selector or value text
//
// ErrorTypeFile: import could not be read or resolved
//
// ErrorTypeParse: malformed tree document
//
// # Basic Usage
//
//	err := errors.Newf(errors.ErrorTypeName, "variable %s is undefined", name).At(file, index)
//
//	var cerr *errors.Error
//	if errors.As(err, &cerr) && cerr.Type == errors.ErrorTypeName {
//	    ...
//	}
package errors
