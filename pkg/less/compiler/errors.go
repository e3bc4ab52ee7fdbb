package compiler

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid compiler configuration.
	ErrInvalidConfig = errors.New("invalid compiler configuration")

	// ErrMinify indicates the minifier rejected the generated CSS.
	ErrMinify = errors.New("minification failed")
)

// TimeoutError indicates a render exceeded the configured timeout.
type TimeoutError struct {
	File    string
	Timeout time.Duration
	Cause   error
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: render timeout after %v", e.File, e.Timeout)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// VariableError indicates a global or modify variable that does not parse.
type VariableError struct {
	Name  string
	Value string
	Cause error
}

// Error returns the error message.
func (e *VariableError) Error() string {
	return fmt.Sprintf("variable %s: cannot parse value %q: %v", e.Name, e.Value, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *VariableError) Unwrap() error {
	return e.Cause
}
