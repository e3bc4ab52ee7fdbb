package imports

import (
	"fmt"

	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// Failure classes reported in LoadError.Reason.
const (
	ReasonMissing    = "missing"
	ReasonAccess     = "access"
	ReasonTooLarge   = "too_large"
	ReasonPermission = "permission"
	ReasonRead       = "read"
	ReasonEncoding   = "encoding"
	ReasonParse      = "parse"
)

// LoadError reports an import that could not be loaded from the file system.
// Files that do not exist wrap errors.ErrImportMissing so optional imports can
// be skipped by the evaluator.
type LoadError struct {
	// FilePath is the import path as written, or the resolved file when known
	FilePath string

	// Reason is a short failure class used as a metrics label
	Reason string

	// Message describes the error
	Message string

	// Searched lists the locations tried for a missing file
	Searched []string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load import %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load import %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

func missingError(path string, searched []string) *LoadError {
	return &LoadError{
		FilePath: path,
		Reason:   ReasonMissing,
		Message:  "file not found",
		Searched: searched,
		Cause:    lesserrors.ErrImportMissing,
	}
}

// reasonOf classifies an import failure. Errors that are not a LoadError come
// from the parser.
func reasonOf(err error) string {
	var loadErr *LoadError
	if lesserrors.As(err, &loadErr) && loadErr.Reason != "" {
		return loadErr.Reason
	}
	return ReasonParse
}
