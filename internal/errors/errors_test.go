package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with SearchError
	se := New(ErrCodeIndexFailed, "write failed", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, se)
	assert.Equal(t, originalErr, errors.Unwrap(se))
	assert.True(t, errors.Is(se, originalErr))
}

func TestSearchError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "bad level",
			expected: "[ERR_102_CONFIG_INVALID] bad level",
		},
		{
			name:     "filter error",
			code:     ErrCodeMalformedFilter,
			message:  "unexpected token",
			expected: "[ERR_404_MALFORMED_FILTER] unexpected token",
		},
		{
			name:     "not started",
			code:     ErrCodeNotStarted,
			message:  "service is not started",
			expected: "[ERR_502_NOT_STARTED] service is not started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestSearchError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("search: %w", Newf(ErrCodeMalformedFilter, "bad token %q", "eqq"))

	assert.True(t, errors.Is(err, New(ErrCodeMalformedFilter, "", nil)))
	assert.False(t, errors.Is(err, New(ErrCodeInvalidQuery, "", nil)))
}

func TestSearchError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeIndexNotFound, "missing", nil).
		WithDetail("index", "listings").
		WithDetail("op", "indexDocument")

	assert.Equal(t, "listings", err.Details["index"])
	assert.Equal(t, "indexDocument", err.Details["op"])
}

func TestSearchError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeUnavailable, CategoryTransient},
		{ErrCodeMissingKey, CategoryValidation},
		{ErrCodeIndexNotFound, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{"bad", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, categoryFromCode(tt.code))
		})
	}
}

func TestSearchError_SeverityFromCode(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeNotStarted, "", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeInvalidQuery, "", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeTimeout, "", nil).Severity)
	assert.Equal(t, SeverityError, New(ErrCodeMalformedFilter, "", nil).Severity)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"unavailable", New(ErrCodeUnavailable, "down", nil), true},
		{"wrapped timeout", fmt.Errorf("ctx: %w", New(ErrCodeTimeout, "slow", nil)), true},
		{"circuit open", ErrCircuitOpen, false},
		{"malformed filter", New(ErrCodeMalformedFilter, "x", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsCode_FindsCodeInChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", MissingKey("listings", "id"))

	assert.True(t, IsCode(err, ErrCodeMissingKey))
	assert.False(t, IsCode(err, ErrCodeIndexNotFound))
	assert.Equal(t, ErrCodeMissingKey, GetCode(err))
	assert.Equal(t, CategoryValidation, GetCategory(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestIndexNotFound_CarriesIndexName(t *testing.T) {
	err := IndexNotFound("listings")

	assert.Equal(t, ErrCodeIndexNotFound, err.Code)
	assert.Equal(t, "listings", err.Details["index"])
	assert.NotEmpty(t, err.Suggestion)
	assert.Contains(t, err.Error(), `"listings"`)
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeNotStarted, "", nil)))
	assert.False(t, IsFatal(New(ErrCodeInternal, "", nil)))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	se := Wrap(ErrCodeHashFailed, errors.New("encode"))
	require.NotNil(t, se)
	assert.Equal(t, "encode", se.Message)
}
