package errors

import (
	"errors"
	"fmt"
)

// SearchError is the structured error type for the search index.
// It carries enough context for callers to decide on their own fallback
// (degrade to the primary store, surface to the user, retry).
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_404_MALFORMED_FILTER").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the caller.
	Suggestion string
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SearchError sentinels.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the caller.
// Returns the error for method chaining.
func (e *SearchError) WithSuggestion(suggestion string) *SearchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new SearchError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *SearchError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a SearchError from an existing error.
// The error's message becomes the SearchError message.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a caller input error.
func ValidationError(message string, cause error) *SearchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SearchError {
	return New(ErrCodeInternal, message, cause)
}

// IndexNotFound creates the error returned by mutations against an unknown index.
func IndexNotFound(name string) *SearchError {
	return New(ErrCodeIndexNotFound, fmt.Sprintf("index %q does not exist", name), nil).
		WithDetail("index", name).
		WithSuggestion("create the index with CreateIndexIfNotExists before writing documents")
}

// MissingKey creates the error returned for a document without its key value.
func MissingKey(index, keyField string) *SearchError {
	return New(ErrCodeMissingKey, fmt.Sprintf("document for index %q has no value for key field %q", index, keyField), nil).
		WithDetail("index", index).
		WithDetail("key_field", keyField)
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain contains a SearchError with Retryable set.
func IsRetryable(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsCode reports whether err's chain contains a SearchError with the given code.
func IsCode(err error, code string) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetCode extracts the error code from a SearchError.
// Returns empty string if not a SearchError.
func GetCode(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SearchError.
// Returns empty string if not a SearchError.
func GetCategory(err error) Category {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
