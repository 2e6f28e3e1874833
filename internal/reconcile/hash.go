// Package reconcile keeps a search index in step with a source of entities.
// Each entity carries the content hash and time of its last successful
// write, so unchanged entities are skipped and changed ones are written
// with exponential-backoff retries.
package reconcile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
)

// DefaultExcludedFields are bookkeeping fields that never affect the hash.
var DefaultExcludedFields = []string{"updatedAt", "lastIndexed", "hash"}

// Hasher computes content hashes of documents.
type Hasher struct {
	exclude map[string]bool
}

// NewHasher returns a Hasher that ignores the default excluded fields and extra.
func NewHasher(extra ...string) *Hasher {
	h := &Hasher{exclude: make(map[string]bool, len(DefaultExcludedFields)+len(extra))}
	for _, f := range DefaultExcludedFields {
		h.exclude[f] = true
	}
	for _, f := range extra {
		h.exclude[f] = true
	}
	return h
}

var defaultHasher = NewHasher()

// Hash returns the content hash of doc using the default excluded fields.
func Hash(doc schema.Document) (string, error) {
	return defaultHasher.Hash(doc)
}

// Hash returns the hex SHA-256 of the canonical msgpack encoding of doc.
// Top-level excluded fields are dropped. Map keys are sorted, integral
// numbers are encoded as int64, other numbers as float64 and times as
// RFC 3339 UTC strings, so the hash does not depend on key order or on the
// Go type of a number.
func (h *Hasher) Hash(doc schema.Document) (string, error) {
	top := make(map[string]any, len(doc))
	for k, v := range doc {
		if h.exclude[k] {
			continue
		}
		top[k] = canonical(v)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(top); err != nil {
		return "", serrors.New(serrors.ErrCodeHashFailed, "failed to encode document for hashing", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func canonical(v any) any {
	switch x := v.(type) {
	case nil, string, bool:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339Nano)
	case schema.Document:
		return canonicalMap(x)
	case map[string]any:
		return canonicalMap(x)
	}
	if n, ok := canonicalNumber(v); ok {
		return n
	}
	if elems, ok := schema.AsSlice(v); ok {
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = canonical(e)
		}
		return out
	}
	return v
}

func canonicalMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = canonical(v)
	}
	return out
}

// canonicalNumber keeps integers exact. Values beyond float64 precision
// would otherwise hash alike.
func canonicalNumber(v any) (any, bool) {
	switch x := v.(type) {
	case uint:
		if uint64(x) > math.MaxInt64 {
			return uint64(x), true
		}
	case uint64:
		if x > math.MaxInt64 {
			return x, true
		}
	}
	if n, ok := schema.ToInteger(v); ok {
		return n, true
	}
	if f, ok := schema.ToFloat64(v); ok {
		return f, true
	}
	return nil, false
}
