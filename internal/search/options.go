package search

import (
	"strconv"
	"strings"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/filter"
	"github.com/sharethrift/searchindex/internal/textsearch"
)

const (
	// DefaultTop is used when no config is supplied.
	DefaultTop = 50
	// MaxTop is used when no config is supplied.
	MaxTop = 1000

	// ScoreField sorts by relevance in an orderBy entry.
	ScoreField = "search.score()"
)

type sortKey struct {
	field string
	desc  bool
}

type facetSpec struct {
	field string
	limit int // 0 means unlimited
}

// plan is a validated, compiled form of Options.
type plan struct {
	queryType string
	mode      textsearch.SearchMode
	filter    *filter.Filter
	orderBy   []sortKey
	facets    []facetSpec
	top       int
	skip      int
	selected  []string
}

func invalidOption(format string, args ...any) error {
	return serrors.Newf(serrors.ErrCodeInvalidInput, format, args...)
}

// compile validates opts and applies defaults.
func (s *Service) compile(opts *Options) (*plan, error) {
	if opts == nil {
		opts = &Options{}
	}
	p := &plan{queryType: "simple", mode: textsearch.ModeAny}

	switch strings.ToLower(opts.QueryType) {
	case "", "simple":
	case "full":
		p.queryType = "full"
	default:
		return nil, invalidOption("unknown queryType %q", opts.QueryType)
	}

	switch strings.ToLower(opts.SearchMode) {
	case "", "any":
	case "all":
		p.mode = textsearch.ModeAll
	default:
		return nil, invalidOption("unknown searchMode %q", opts.SearchMode)
	}

	if strings.TrimSpace(opts.Filter) != "" {
		f, err := filter.Compile(opts.Filter)
		if err != nil {
			return nil, err
		}
		p.filter = f
	}

	for _, entry := range opts.OrderBy {
		key, err := parseOrderBy(entry)
		if err != nil {
			return nil, err
		}
		p.orderBy = append(p.orderBy, key)
	}

	for _, entry := range opts.Facets {
		spec, err := parseFacet(entry)
		if err != nil {
			return nil, err
		}
		p.facets = append(p.facets, spec)
	}

	if opts.Top < 0 {
		return nil, invalidOption("top must be non-negative, got %d", opts.Top)
	}
	if opts.Skip < 0 {
		return nil, invalidOption("skip must be non-negative, got %d", opts.Skip)
	}
	p.top = opts.Top
	if p.top == 0 {
		p.top = s.defaultTop
	}
	if p.top > s.maxTop {
		p.top = s.maxTop
	}
	p.skip = opts.Skip

	for _, f := range opts.Select {
		if f = strings.TrimSpace(f); f != "" {
			p.selected = append(p.selected, f)
		}
	}
	return p, nil
}

// parseOrderBy parses "field", "field asc" or "field desc".
func parseOrderBy(entry string) (sortKey, error) {
	parts := strings.Fields(entry)
	switch len(parts) {
	case 1:
		return sortKey{field: normalizePath(parts[0])}, nil
	case 2:
		switch strings.ToLower(parts[1]) {
		case "asc":
			return sortKey{field: normalizePath(parts[0])}, nil
		case "desc":
			return sortKey{field: normalizePath(parts[0]), desc: true}, nil
		}
		return sortKey{}, invalidOption("orderBy %q: unknown direction %q", entry, parts[1])
	case 0:
		return sortKey{}, invalidOption("orderBy entry is empty")
	default:
		return sortKey{}, invalidOption("orderBy %q: expected \"field [asc|desc]\"", entry)
	}
}

// parseFacet parses "field" or "field,count:N".
func parseFacet(entry string) (facetSpec, error) {
	parts := strings.Split(entry, ",")
	field := strings.TrimSpace(parts[0])
	if field == "" {
		return facetSpec{}, invalidOption("facet %q: empty field", entry)
	}
	spec := facetSpec{field: normalizePath(field)}

	for _, param := range parts[1:] {
		name, value, ok := strings.Cut(strings.TrimSpace(param), ":")
		if !ok || strings.TrimSpace(name) != "count" {
			return facetSpec{}, invalidOption("facet %q: unsupported parameter %q", entry, param)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return facetSpec{}, invalidOption("facet %q: count must be a positive integer", entry)
		}
		spec.limit = n
	}
	return spec, nil
}

func normalizePath(p string) string {
	if p == ScoreField {
		return p
	}
	return strings.ReplaceAll(p, "/", ".")
}
