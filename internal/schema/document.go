package schema

import (
	"fmt"
	"math"
	"strconv"

	serrors "github.com/sharethrift/searchindex/internal/errors"
)

// KeyOf returns the identity of doc within an index defined by def.
// String keys are used as is. Integral numbers are rendered in base 10.
func KeyOf(def IndexDefinition, doc Document) (string, error) {
	kf, ok := def.KeyField()
	if !ok {
		return "", schemaError("index %q has no key field", def.Name)
	}
	key, ok := keyString(doc[kf.Name])
	if !ok {
		return "", serrors.MissingKey(def.Name, kf.Name)
	}
	return key, nil
}

func keyString(v any) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, k != ""
	}
	if n, ok := ToInteger(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

// ValidateDocument checks every declared field of doc against its type and
// returns a normalised copy. The key value is stored as a string, and
// DateTimeOffset values as UTC time.Time. Undeclared fields are kept as is.
func ValidateDocument(def IndexDefinition, doc Document) (Document, error) {
	if doc == nil {
		kf, _ := def.KeyField()
		return nil, serrors.MissingKey(def.Name, kf.Name)
	}
	key, err := KeyOf(def, doc)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	for _, f := range def.Fields {
		v, present := doc[f.Name]
		if f.Key {
			out[f.Name] = key
			continue
		}
		if !present || v == nil {
			continue
		}
		nv, err := normalizeValue(f.Type, v)
		if err != nil {
			return nil, serrors.New(serrors.ErrCodeTypeMismatch,
				fmt.Sprintf("index %q: field %q: %v", def.Name, f.Name, err), nil).
				WithDetail("index", def.Name).
				WithDetail("field", f.Name).
				WithDetail("key", key)
		}
		out[f.Name] = nv
	}
	return out, nil
}

func normalizeValue(t FieldType, v any) (any, error) {
	if t.IsCollection() {
		items, ok := AsSlice(v)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", t, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			if item == nil {
				continue
			}
			nv, err := normalizeValue(t.Elem(), item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	}

	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt32:
		if n, ok := ToInteger(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return n, nil
		}
	case TypeInt64:
		if n, ok := ToInteger(v); ok {
			return n, nil
		}
	case TypeDouble:
		if f, ok := ToFloat64(v); ok {
			return f, nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeDateTimeOffset:
		if tm, ok := ToTime(v); ok {
			return tm, nil
		}
	case TypeGeographyPoint:
		if isGeoPoint(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

// isGeoPoint accepts a GeoJSON point or a {lat, lon} object.
func isGeoPoint(v any) bool {
	m, ok := asObject(v)
	if !ok {
		return false
	}
	if coords, ok := AsSlice(m["coordinates"]); ok {
		if kind, _ := m["type"].(string); kind != "Point" || len(coords) != 2 {
			return false
		}
		_, okLon := ToFloat64(coords[0])
		_, okLat := ToFloat64(coords[1])
		return okLon && okLat
	}
	_, okLat := ToFloat64(m["lat"])
	_, okLon := ToFloat64(m["lon"])
	return okLat && okLon
}
