// Package search orchestrates index lifecycle, document writes and queries
// over the in-memory index store and the text search engine.
package search

import (
	"github.com/sharethrift/searchindex/internal/schema"
)

// Options configures a search call. JSON names follow the wire contract.
type Options struct {
	// QueryType is "simple" (default) or "full". Both accept the same syntax.
	QueryType string `json:"queryType,omitempty"`

	// SearchMode is "any" (default) or "all".
	SearchMode string `json:"searchMode,omitempty"`

	// IncludeTotalCount is accepted for compatibility; Count is always set.
	IncludeTotalCount bool `json:"includeTotalCount,omitempty"`

	// Filter is an OData-style boolean expression.
	Filter string `json:"filter,omitempty"`

	// Facets lists facet specs: "field" or "field,count:N".
	Facets []string `json:"facets,omitempty"`

	// Top is the page size (default from config, clamped to the configured max).
	Top int `json:"top,omitempty"`

	// Skip is the number of results to skip.
	Skip int `json:"skip,omitempty"`

	// OrderBy lists "field [asc|desc]" entries. Without it results are
	// ordered by score.
	OrderBy []string `json:"orderBy,omitempty"`

	// Select projects result documents to these fields.
	Select []string `json:"select,omitempty"`
}

// Result is one returned document.
type Result struct {
	Document schema.Document `json:"document"`
	Score    float64         `json:"score"`
}

// FacetValue is one distinct value of a facet field and its frequency.
type FacetValue struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// DocumentsResult is the response of Search.
type DocumentsResult struct {
	Results []Result `json:"results"`
	// Count is the number of documents matching text and filter before paging.
	Count  int                     `json:"count"`
	Facets map[string][]FacetValue `json:"facets"`
}

func emptyResult() *DocumentsResult {
	return &DocumentsResult{
		Results: []Result{},
		Facets:  map[string][]FacetValue{},
	}
}
