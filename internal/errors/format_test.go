package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: an index-not-found error with a suggestion
	err := IndexNotFound("listings")

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, hint and code are on separate lines
	assert.Contains(t, out, `Error: index "listings" does not exist`)
	assert.Contains(t, out, "Hint: create the index")
	assert.Contains(t, out, "Code: ERR_407_INDEX_NOT_FOUND")
}

func TestFormatForCLI_PlainErrorIsInternal(t *testing.T) {
	out := FormatForCLI(errors.New("disk on fire"))

	assert.Contains(t, out, "Error: disk on fire")
	assert.Contains(t, out, "Code: ERR_501_INTERNAL")
	assert.NotContains(t, out, "Hint:")
}

func TestFormatForCLI_Nil(t *testing.T) {
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	cause := errors.New("unexpected token")
	err := New(ErrCodeMalformedFilter, "bad filter", cause).WithDetail("position", "7")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ERR_404_MALFORMED_FILTER", got["code"])
	assert.Equal(t, "bad filter", got["message"])
	assert.Equal(t, "VALIDATION", got["category"])
	assert.Equal(t, "unexpected token", got["cause"])
	assert.Equal(t, false, got["retryable"])
	assert.Equal(t, map[string]any{"position": "7"}, got["details"])
}

func TestLogAttrs_DescribesError(t *testing.T) {
	err := New(ErrCodeUnavailable, "store down", errors.New("connection refused")).
		WithDetail("index", "listings")

	attrs := LogAttrs(err)

	byKey := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		byKey[a.Key] = a.Value
	}
	assert.Equal(t, "ERR_301_UNAVAILABLE", byKey["error_code"].String())
	assert.Equal(t, "store down", byKey["error"].String())
	assert.True(t, byKey["retryable"].Bool())
	assert.Equal(t, "connection refused", byKey["cause"].String())
	assert.Equal(t, "listings", byKey["detail_index"].String())
}

func TestLogAttrs_Nil(t *testing.T) {
	assert.Nil(t, LogAttrs(nil))
}
