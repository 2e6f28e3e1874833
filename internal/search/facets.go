package search

import (
	"cmp"
	"slices"
	"time"

	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/textsearch"
)

// facetKey identifies a facet value independently of its Go numeric type.
type facetKey struct {
	kind int
	str  string
	num  float64
	b    bool
	ns   int64
}

type facetBucket struct {
	value any
	count int
}

// computeFacets counts distinct values per facet field over hits. Values are
// ordered by count descending, ties in first-seen order. Collection fields
// count each element; missing, nil and object values are skipped.
func computeFacets(hits []textsearch.Hit, specs []facetSpec) map[string][]FacetValue {
	out := make(map[string][]FacetValue, len(specs))
	for _, spec := range specs {
		var order []facetKey
		buckets := make(map[facetKey]*facetBucket)

		add := func(v any) {
			key, ok := toFacetKey(v)
			if !ok {
				return
			}
			b, seen := buckets[key]
			if !seen {
				b = &facetBucket{value: v}
				buckets[key] = b
				order = append(order, key)
			}
			b.count++
		}

		for _, h := range hits {
			v, ok := schema.ResolvePath(h.Document, spec.field)
			if !ok {
				continue
			}
			if elems, isSlice := schema.AsSlice(v); isSlice {
				for _, e := range elems {
					add(e)
				}
				continue
			}
			add(v)
		}

		values := make([]FacetValue, 0, len(order))
		for _, key := range order {
			b := buckets[key]
			values = append(values, FacetValue{Value: b.value, Count: b.count})
		}
		slices.SortStableFunc(values, func(a, b FacetValue) int {
			return cmp.Compare(b.Count, a.Count)
		})
		if spec.limit > 0 && len(values) > spec.limit {
			values = values[:spec.limit]
		}
		out[spec.field] = values
	}
	return out
}

func toFacetKey(v any) (facetKey, bool) {
	switch x := v.(type) {
	case nil:
		return facetKey{}, false
	case string:
		return facetKey{kind: rankString, str: x}, true
	case bool:
		return facetKey{kind: rankBool, b: x}, true
	case time.Time:
		return facetKey{kind: rankTime, ns: x.UnixNano()}, true
	}
	if f, ok := schema.ToFloat64(v); ok {
		return facetKey{kind: rankNumber, num: f}, true
	}
	return facetKey{}, false
}
