package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/telemetry"
	"github.com/sharethrift/searchindex/internal/textsearch"
)

// Search runs text against the named index and applies opts in order:
// filter, count, orderBy, skip/top, facets over the filtered set, select.
//
// An unknown index or a malformed text query returns an empty result with
// no facets. The index is looked up before opts are checked. Malformed
// filter, orderBy, facet or paging options on a known index are returned
// as errors.
func (s *Service) Search(ctx context.Context, indexName, text string, opts *Options) (*DocumentsResult, error) {
	start := time.Now()

	if err := s.checkRunning("search"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	def, ok := s.store.Definition(indexName)
	if !ok {
		s.logger.Debug("search_unknown_index", slog.String("index", indexName))
		s.recordMetrics(indexName, text, nil, 0, time.Since(start))
		return emptyResult(), nil
	}

	p, err := s.compile(opts)
	if err != nil {
		return nil, err
	}

	found := s.engine.Search(indexName, text, textsearch.Options{Mode: p.mode})
	if found.Malformed {
		s.recordMetrics(indexName, text, p, 0, time.Since(start))
		return emptyResult(), nil
	}
	hits := found.Hits

	if p.filter != nil {
		filtered := hits[:0:0]
		for _, h := range hits {
			if p.filter.Match(h.Document) {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	count := len(hits)
	sortHits(hits, p.orderBy)

	res := &DocumentsResult{
		Results: project(page(hits, p.skip, p.top), def, p.selected),
		Count:   count,
		Facets:  computeFacets(hits, p.facets),
	}

	s.recordMetrics(indexName, text, p, count, time.Since(start))
	return res, nil
}

func page(hits []textsearch.Hit, skip, top int) []textsearch.Hit {
	if skip >= len(hits) {
		return nil
	}
	hits = hits[skip:]
	if top < len(hits) {
		hits = hits[:top]
	}
	return hits
}

// project copies each hit's document, keeps only the selected fields and
// strips fields declared non-retrievable.
func project(hits []textsearch.Hit, def schema.IndexDefinition, selected []string) []Result {
	hidden := make(map[string]bool)
	for _, f := range def.Fields {
		if !f.IsRetrievable() {
			hidden[f.Name] = true
		}
	}
	all := len(selected) == 0 || slices.Contains(selected, "*")

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		doc := make(schema.Document, len(h.Document))
		if all {
			for k, v := range h.Document {
				if !hidden[k] {
					doc[k] = v
				}
			}
		} else {
			for _, k := range selected {
				if v, ok := h.Document[k]; ok && !hidden[k] {
					doc[k] = v
				}
			}
		}
		results = append(results, Result{Document: doc, Score: h.Score})
	}
	return results
}

func (s *Service) recordMetrics(indexName, text string, p *plan, resultCount int, latency time.Duration) {
	if s.metrics == nil {
		return
	}

	qt := telemetry.QueryTypeSimple
	var filterSrc string
	if p != nil {
		qt = telemetry.QueryType(p.queryType)
		if p.filter != nil {
			filterSrc = p.filter.String()
		}
	}
	if t := strings.TrimSpace(text); t == "" || t == "*" {
		qt = telemetry.QueryTypeAll
	}

	s.metrics.Record(telemetry.QueryEvent{
		Index:       indexName,
		Query:       text,
		QueryType:   qt,
		Filter:      filterSrc,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// sortHits orders hits by the sort keys, falling back to the engine order.
// The engine order is already score descending with stable ties.
func sortHits(hits []textsearch.Hit, keys []sortKey) {
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(hits, func(a, b textsearch.Hit) int {
		for _, k := range keys {
			var c int
			if k.field == ScoreField {
				c = cmp.Compare(a.Score, b.Score)
			} else {
				av, _ := schema.ResolvePath(a.Document, k.field)
				bv, _ := schema.ResolvePath(b.Document, k.field)
				c = compareValues(av, bv)
			}
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// Sort ranks: missing < bool < number < string < time.
const (
	rankMissing = iota
	rankBool
	rankNumber
	rankString
	rankTime
)

func sortRank(v any) int {
	switch v.(type) {
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time, *time.Time:
		return rankTime
	}
	if _, ok := schema.ToFloat64(v); ok {
		return rankNumber
	}
	return rankMissing
}

func compareValues(a, b any) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		af, _ := schema.ToFloat64(a)
		bf, _ := schema.ToFloat64(b)
		return cmp.Compare(af, bf)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		at, _ := schema.ToTime(a)
		bt, _ := schema.ToTime(b)
		return at.Compare(bt)
	}
	return 0
}
