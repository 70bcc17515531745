package errors

import (
	stderrors "errors"
	"fmt"
)

// IndexError is the structured error type for scribeindex.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_203_INDEX_CORRUPTION").
	Code string

	// Kind is the build failure taxonomy entry for Code.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Recoverable is true when a surrounding batch or build may continue.
	Recoverable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is matches another IndexError by code.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *IndexError) WithSuggestion(suggestion string) *IndexError {
	e.Suggestion = suggestion
	return e
}

// New creates an IndexError. Kind, category, severity and recoverability
// are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:        code,
		Kind:        kindFromCode(code),
		Message:     message,
		Category:    categoryFromCode(code),
		Severity:    severityFromCode(code),
		Cause:       cause,
		Recoverable: isRecoverableCode(code),
	}
}

// Wrap creates an IndexError from an existing error using its message.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// FileProcessing reports an unreadable or unparseable source file.
func FileProcessing(path, message string, cause error) *IndexError {
	return New(ErrCodeFileProcessing, message, cause).WithDetail("path", path)
}

// Corruption reports a violated index invariant.
func Corruption(message string, cause error) *IndexError {
	return New(ErrCodeIndexCorruption, message, cause).
		WithSuggestion("rebuild the index with `scribeindex rebuild <tool>`")
}

// Permission reports an access failure on a file or directory.
func Permission(path string, cause error) *IndexError {
	return New(ErrCodePermissionDenied, "permission denied: "+path, cause).WithDetail("path", path)
}

// InvalidConfig reports a configuration that cannot start a build.
func InvalidConfig(message string) *IndexError {
	return New(ErrCodeConfigInvalid, message, nil)
}

// Storage reports an index read or write failure.
func Storage(message string, cause error) *IndexError {
	return New(ErrCodeStorage, message, cause)
}

// Cancelled reports a build stopped by the user.
func Cancelled(buildID string) *IndexError {
	return New(ErrCodeBuildCancelled, "build cancelled: "+buildID, nil).WithDetail("build_id", buildID)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first IndexError in err's chain.
func As(err error) (*IndexError, bool) {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if ie, ok := As(err); ok {
		return ie.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsRecoverable reports whether a build may continue after err.
func IsRecoverable(err error) bool {
	if ie, ok := As(err); ok {
		return ie.Recoverable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ie, ok := As(err); ok {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" for foreign errors.
func GetCode(err error) string {
	if ie, ok := As(err); ok {
		return ie.Code
	}
	return ""
}
