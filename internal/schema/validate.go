package schema

import (
	"fmt"
	"regexp"

	serrors "github.com/sharethrift/searchindex/internal/errors"
)

var validIndexNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func schemaError(format string, args ...any) error {
	return serrors.New(serrors.ErrCodeInvalidSchema, fmt.Sprintf(format, args...), nil)
}

// Normalize validates d and returns a copy with canonical field types.
func (d IndexDefinition) Normalize() (IndexDefinition, error) {
	if d.Name == "" {
		return IndexDefinition{}, schemaError("index name must not be empty")
	}
	if !validIndexNameRe.MatchString(d.Name) {
		return IndexDefinition{}, schemaError("invalid index name: %s (must match %s)", d.Name, validIndexNameRe.String())
	}
	if len(d.Fields) == 0 {
		return IndexDefinition{}, schemaError("index %q must have at least one field", d.Name)
	}

	out := d.Clone()
	seen := make(map[string]bool, len(out.Fields))
	keys := 0

	for i := range out.Fields {
		f := &out.Fields[i]
		if f.Name == "" {
			return IndexDefinition{}, schemaError("index %q: field %d has no name", d.Name, i)
		}
		if seen[f.Name] {
			return IndexDefinition{}, schemaError("index %q: duplicate field %q", d.Name, f.Name)
		}
		seen[f.Name] = true

		t, err := ParseFieldType(string(f.Type))
		if err != nil {
			return IndexDefinition{}, schemaError("index %q: field %q: %v", d.Name, f.Name, err)
		}
		f.Type = t

		if f.Key {
			keys++
			if t != TypeString {
				return IndexDefinition{}, schemaError("index %q: key field %q must be %s, got %s", d.Name, f.Name, TypeString, t)
			}
		}
	}

	if keys != 1 {
		return IndexDefinition{}, schemaError("index %q must have exactly one key field, got %d", d.Name, keys)
	}

	return out, nil
}

// Validate checks if the definition is valid.
func (d IndexDefinition) Validate() error {
	_, err := d.Normalize()
	return err
}
