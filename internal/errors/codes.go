// Package errors provides structured error handling for the search index.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: Transient dependency errors
//   - 4XX: Caller / validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryTransient indicates failures of a dependency that may succeed on retry.
	CategoryTransient Category = "TRANSIENT"
	// CategoryValidation indicates caller input or contract errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Transient errors (300-399)
	ErrCodeUnavailable = "ERR_301_UNAVAILABLE"
	ErrCodeTimeout     = "ERR_302_TIMEOUT"
	ErrCodeCircuitOpen = "ERR_303_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidSchema   = "ERR_402_INVALID_SCHEMA"
	ErrCodeInvalidQuery    = "ERR_403_INVALID_QUERY"
	ErrCodeMalformedFilter = "ERR_404_MALFORMED_FILTER"
	ErrCodeMissingKey      = "ERR_405_MISSING_KEY"
	ErrCodeTypeMismatch    = "ERR_406_TYPE_MISMATCH"
	ErrCodeIndexNotFound   = "ERR_407_INDEX_NOT_FOUND"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeNotStarted  = "ERR_502_NOT_STARTED"
	ErrCodeIndexFailed = "ERR_503_INDEX_FAILED"
	ErrCodeHashFailed  = "ERR_504_HASH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "404" from "ERR_404_MALFORMED_FILTER")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryTransient
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeNotStarted:
		return SeverityFatal
	case ErrCodeInvalidQuery:
		// Malformed free-text queries are absorbed into an empty result.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeUnavailable, ErrCodeTimeout:
		return true
	default:
		return false
	}
}
