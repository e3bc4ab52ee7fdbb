package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType categorizes an error raised while loading, evaluating or emitting a stylesheet.
type ErrorType string

const (
	ErrorTypeName     ErrorType = "Name"     // Undefined or recursive reference
	ErrorTypeRuntime  ErrorType = "Runtime"  // Evaluation failure
	ErrorTypeArgument ErrorType = "Argument" // Bad builtin function arguments
	ErrorTypeSyntax   ErrorType = "Syntax"   // Malformed selector/value text
	ErrorTypeFile     ErrorType = "File"     // Import I/O failure
	ErrorTypeParse    ErrorType = "Parse"    // Malformed tree document
)

// Sentinel causes wrapped by typed errors so callers can test for them with
// errors.Is.
var (
	ErrNoRoot        = stderrors.New("document has no root ruleset")
	ErrMaxDepth      = stderrors.New("maximum mixin call depth exceeded")
	ErrImportMissing = stderrors.New("import not found")
)

// Location is the source position of an error. Index is a byte offset into the
// file, -1 when unknown. Line and Column are 1-based and filled in by Locate.
type Location struct {
	File   string
	Index  int
	Line   int
	Column int
}

// String returns a human-readable representation of the location.
// Format: "file:line:column", or "file@index" when line information is missing.
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	if l.Index >= 0 {
		return fmt.Sprintf("%s@%d", l.File, l.Index)
	}
	return l.File
}

// IsValid returns true if the location names a file and a position in it.
func (l Location) IsValid() bool {
	return l.File != "" && (l.Index >= 0 || l.Line > 0)
}

// Error is a typed compiler error with position, context and an optional suggestion.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Error message
	Location   Location  // Source location
	Context    string    // Surrounding lines of source
	Suggestion string    // Suggested fix (optional)
	Cause      error     // Wrapped error (optional)
}

// New creates an error without a position.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Location: Location{Index: -1}}
}

// Newf creates an error without a position using a format string.
func Newf(errType ErrorType, format string, args ...any) *Error {
	return New(errType, fmt.Sprintf(format, args...))
}

// Wrap creates an error of the given type that wraps cause.
func Wrap(errType ErrorType, cause error, message string) *Error {
	e := New(errType, message)
	e.Cause = cause
	return e
}

// Error implements the error interface.
// It returns a formatted error message with location and context.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimRight(e.Context, "\n"))
		sb.WriteString("\n  |")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasPosition reports whether a file and index have been attached.
func (e *Error) HasPosition() bool {
	return e.Location.File != "" && e.Location.Index >= 0
}

// At stamps the error with a position unless it already carries one.
// It returns the receiver so it can be chained after New.
func (e *Error) At(file string, index int) *Error {
	if e.HasPosition() {
		return e
	}
	if e.Location.File == "" {
		e.Location.File = file
	}
	if e.Location.Index < 0 {
		e.Location.Index = index
	}
	return e
}

// WithSuggestion sets the suggestion and returns the receiver.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Stamp attaches file and index to err if it is (or wraps) an *Error lacking a
// position. Other errors are converted into Runtime errors carrying the position.
func Stamp(err error, file string, index int) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if stderrors.As(err, &ce) {
		ce.At(file, index)
		return err
	}
	out := Wrap(ErrorTypeRuntime, err, err.Error())
	return out.At(file, index)
}

// IsType reports whether err is (or wraps) an *Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var ce *Error
	return stderrors.As(err, &ce) && ce.Type == errType
}

// As is errors.As from the standard library, re-exported so callers importing
// this package under the name errors keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// ErrorList represents a collection of errors, used when loading a document
// reports more than one problem.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	out := make([]error, len(el.Errors))
	for i, e := range el.Errors {
		out[i] = e
	}
	return out
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}
