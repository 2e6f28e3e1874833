// Package schema defines index definitions and documents, and validates both.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is an Edm type name, or Collection(<Edm type>).
type FieldType string

const (
	TypeString         FieldType = "Edm.String"
	TypeInt32          FieldType = "Edm.Int32"
	TypeInt64          FieldType = "Edm.Int64"
	TypeDouble         FieldType = "Edm.Double"
	TypeBoolean        FieldType = "Edm.Boolean"
	TypeDateTimeOffset FieldType = "Edm.DateTimeOffset"
	TypeGeographyPoint FieldType = "Edm.GeographyPoint"
)

var primitiveTypes = map[string]FieldType{
	"string":         TypeString,
	"int32":          TypeInt32,
	"int64":          TypeInt64,
	"double":         TypeDouble,
	"boolean":        TypeBoolean,
	"datetimeoffset": TypeDateTimeOffset,
	"geographypoint": TypeGeographyPoint,
}

// ParseFieldType parses s into its canonical form. Bare names ("String")
// and any letter case are accepted.
func ParseFieldType(s string) (FieldType, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)

	if strings.HasPrefix(lower, "collection(") && strings.HasSuffix(lower, ")") {
		inner := raw[len("collection(") : len(raw)-1]
		elem, err := ParseFieldType(inner)
		if err != nil {
			return "", err
		}
		if elem.IsCollection() {
			return "", fmt.Errorf("nested collection type %q", s)
		}
		return FieldType("Collection(" + string(elem) + ")"), nil
	}

	lower = strings.TrimPrefix(lower, "edm.")
	if t, ok := primitiveTypes[lower]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// IsCollection reports whether t is a Collection(...) type.
func (t FieldType) IsCollection() bool {
	return strings.HasPrefix(string(t), "Collection(")
}

// Elem returns the element type of a collection, or t itself.
func (t FieldType) Elem() FieldType {
	if !t.IsCollection() {
		return t
	}
	return FieldType(strings.TrimSuffix(strings.TrimPrefix(string(t), "Collection("), ")"))
}

// IsText reports whether values of t take part in full-text search.
func (t FieldType) IsText() bool {
	return t.Elem() == TypeString
}

// SearchField describes one field of an index.
type SearchField struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Key         bool      `json:"key,omitempty" yaml:"key,omitempty"`
	Searchable  bool      `json:"searchable,omitempty" yaml:"searchable,omitempty"`
	Filterable  bool      `json:"filterable,omitempty" yaml:"filterable,omitempty"`
	Sortable    bool      `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	Facetable   bool      `json:"facetable,omitempty" yaml:"facetable,omitempty"`
	Retrievable *bool     `json:"retrievable,omitempty" yaml:"retrievable,omitempty"`
}

// IsRetrievable reports whether the field is returned in search results.
// Fields are retrievable unless explicitly marked otherwise.
func (f SearchField) IsRetrievable() bool {
	return f.Retrievable == nil || *f.Retrievable
}

// IsFullText reports whether the field is indexed for text search.
func (f SearchField) IsFullText() bool {
	return f.Searchable && f.Type.IsText()
}

// IndexDefinition is a named index and its field schema.
type IndexDefinition struct {
	Name   string        `json:"name" yaml:"name"`
	Fields []SearchField `json:"fields" yaml:"fields"`
}

// KeyField returns the field marked as key.
func (d IndexDefinition) KeyField() (SearchField, bool) {
	for _, f := range d.Fields {
		if f.Key {
			return f, true
		}
	}
	return SearchField{}, false
}

// Field returns the field with the given name.
func (d IndexDefinition) Field(name string) (SearchField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SearchField{}, false
}

// Clone returns a deep copy of d.
func (d IndexDefinition) Clone() IndexDefinition {
	out := IndexDefinition{Name: d.Name, Fields: make([]SearchField, len(d.Fields))}
	for i, f := range d.Fields {
		if f.Retrievable != nil {
			r := *f.Retrievable
			f.Retrievable = &r
		}
		out.Fields[i] = f
	}
	return out
}

// Document is one record of an index.
type Document map[string]any

// Clone returns a shallow copy of doc.
func (doc Document) Clone() Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
