package reconcile

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharethrift/searchindex/internal/schema"
)

func mustHash(t *testing.T, h *Hasher, doc schema.Document) string {
	t.Helper()
	sum, err := h.Hash(doc)
	require.NoError(t, err)
	return sum
}

func TestHash_IsDeterministicHex(t *testing.T) {
	doc := schema.Document{"id": "1", "title": "Mountain Bike", "price": 500}

	first, err := Hash(doc)
	require.NoError(t, err)
	second, err := Hash(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Regexp(t, "^[0-9a-f]+$", first)
}

func TestHash_Equivalences(t *testing.T) {
	h := NewHasher()
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	berlin := time.FixedZone("CEST", 2*3600)

	tests := []struct {
		name string
		a, b schema.Document
	}{
		{
			name: "key order",
			a:    schema.Document{"id": "1", "title": "Bike", "meta": map[string]any{"x": 1, "y": 2}},
			b:    schema.Document{"meta": map[string]any{"y": 2, "x": 1}, "title": "Bike", "id": "1"},
		},
		{
			name: "numeric type",
			a:    schema.Document{"id": "1", "price": 500},
			b:    schema.Document{"id": "1", "price": 500.0},
		},
		{
			name: "json number",
			a:    schema.Document{"id": "1", "price": json.Number("12.5")},
			b:    schema.Document{"id": "1", "price": 12.5},
		},
		{
			name: "time zone",
			a:    schema.Document{"id": "1", "createdAt": when},
			b:    schema.Document{"id": "1", "createdAt": when.In(berlin)},
		},
		{
			name: "typed slices",
			a:    schema.Document{"id": "1", "tags": []string{"a", "b"}},
			b:    schema.Document{"id": "1", "tags": []any{"a", "b"}},
		},
		{
			name: "bookkeeping fields",
			a:    schema.Document{"id": "1", "title": "Bike", "updatedAt": when, "lastIndexed": when, "hash": "abc"},
			b:    schema.Document{"id": "1", "title": "Bike"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, mustHash(t, h, tt.a), mustHash(t, h, tt.b))
		})
	}
}

func TestHash_Differences(t *testing.T) {
	h := NewHasher()
	base := schema.Document{"id": "1", "title": "Bike", "price": 500, "tags": []any{"a", "b"}}

	tests := []struct {
		name string
		doc  schema.Document
	}{
		{"changed value", schema.Document{"id": "1", "title": "Bicycle", "price": 500, "tags": []any{"a", "b"}}},
		{"changed number", schema.Document{"id": "1", "title": "Bike", "price": 501, "tags": []any{"a", "b"}}},
		{"element order", schema.Document{"id": "1", "title": "Bike", "price": 500, "tags": []any{"b", "a"}}},
		{"extra field", schema.Document{"id": "1", "title": "Bike", "price": 500, "tags": []any{"a", "b"}, "color": "red"}},
		{"string vs number", schema.Document{"id": "1", "title": "Bike", "price": "500", "tags": []any{"a", "b"}}},
		{"large int64", schema.Document{"id": "1", "title": "Bike", "price": 500, "tags": []any{"a", "b"}, "views": int64(9007199254740993)}},
		{"nested excluded name", schema.Document{"id": "1", "title": "Bike", "price": 500, "tags": []any{"a", "b"}, "meta": map[string]any{"hash": "x"}}},
	}

	want := mustHash(t, h, base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, want, mustHash(t, h, tt.doc))
		})
	}
}

func TestHasher_ExtraExcludedFields(t *testing.T) {
	plain := NewHasher()
	withRun := NewHasher("runId")

	a := schema.Document{"id": "1", "runId": "r1"}
	b := schema.Document{"id": "1", "runId": "r2"}

	assert.NotEqual(t, mustHash(t, plain, a), mustHash(t, plain, b))
	assert.Equal(t, mustHash(t, withRun, a), mustHash(t, withRun, b))
}

func TestHash_EmptyAndNilDocuments(t *testing.T) {
	empty, err := Hash(schema.Document{})
	require.NoError(t, err)
	nilDoc, err := Hash(nil)
	require.NoError(t, err)

	assert.Equal(t, empty, nilDoc)
}

func TestHash_LargeIntegersStayDistinct(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"int64 beyond 2^53", int64(9007199254740993), int64(9007199254740992)},
		{"uint64 beyond int64", uint64(math.MaxUint64), uint64(math.MaxUint64 - 1)},
		{"json number", json.Number("9007199254740993"), json.Number("9007199254740992")},
		{"fraction vs integer", 2.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustHash(t, defaultHasher, schema.Document{"id": "1", "views": tt.a})
			b := mustHash(t, defaultHasher, schema.Document{"id": "1", "views": tt.b})
			assert.NotEqual(t, a, b)
		})
	}
}

func TestHash_IntegralFloatMatchesInteger(t *testing.T) {
	a := mustHash(t, defaultHasher, schema.Document{"id": "1", "views": int64(9007199254740992)})
	b := mustHash(t, defaultHasher, schema.Document{"id": "1", "views": float64(9007199254740992)})

	assert.Equal(t, a, b)
}
