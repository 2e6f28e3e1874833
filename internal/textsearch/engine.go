// Package textsearch is an in-memory TF-IDF text index with fixed field boosts.
//
// Each index keeps its documents in insertion order together with an
// inverted index over the searchable string fields. Every mutation rebuilds
// the inverted index from scratch.
package textsearch

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2/search"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
)

// Field boosts.
const (
	TitleBoost       = 10.0
	DescriptionBoost = 2.0
	DefaultBoost     = 1.0
)

// FieldBoost returns the relevance multiplier for a searchable field.
func FieldBoost(name string) float64 {
	switch name {
	case "title":
		return TitleBoost
	case "description":
		return DescriptionBoost
	default:
		return DefaultBoost
	}
}

// SearchMode controls how non-required clauses combine.
type SearchMode string

const (
	// ModeAny matches documents that match at least one clause.
	ModeAny SearchMode = "any"
	// ModeAll matches documents that match every clause.
	ModeAll SearchMode = "all"
)

// Options tunes a single search.
type Options struct {
	Mode SearchMode
}

// Hit is a matched document and its relevance score.
type Hit struct {
	Key      string
	Document schema.Document
	Score    float64
}

// Result holds the hits of a search ordered by descending score.
// Equal scores keep insertion order.
type Result struct {
	Hits  []Hit
	Count int
	// Malformed is set when the query text could not be parsed.
	Malformed bool
}

type document struct {
	key  string
	doc  schema.Document
	lens map[string]int
	// freqs maps term -> field -> occurrences.
	freqs map[string]map[string]int
}

type index struct {
	fields     []schema.SearchField
	keyField   string
	searchable map[string]bool
	docs       []*document
	byKey      map[string]int
	df         map[string]int
	vocab      []string
}

// Engine holds the text indexes by name.
type Engine struct {
	analyzer      *Analyzer
	logger        *slog.Logger
	fuzzyDistance int

	mu      sync.RWMutex
	indexes map[string]*index
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFuzzyDistance sets the edit distance used by "term~" without N.
func WithFuzzyDistance(d int) Option {
	return func(e *Engine) {
		e.fuzzyDistance = d
	}
}

// NewEngine creates an empty engine.
func NewEngine(opts ...Option) (*Engine, error) {
	analyzer, err := NewAnalyzer()
	if err != nil {
		return nil, serrors.InternalError("failed to create analyzer", err)
	}
	e := &Engine{
		analyzer:      analyzer,
		logger:        slog.Default(),
		fuzzyDistance: 1,
		indexes:       make(map[string]*index),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// BuildIndex replaces the index name with one built from docs, in order.
// fields must contain exactly one key field.
func (e *Engine) BuildIndex(name string, fields []schema.SearchField, docs []schema.Document) error {
	def := schema.IndexDefinition{Name: name, Fields: fields}
	kf, ok := def.KeyField()
	if !ok {
		return serrors.Newf(serrors.ErrCodeInvalidSchema, "index %q has no key field", name)
	}

	idx := &index{
		fields:     slices.Clone(fields),
		keyField:   kf.Name,
		searchable: make(map[string]bool),
		byKey:      make(map[string]int, len(docs)),
	}
	for _, f := range fields {
		if f.IsFullText() {
			idx.searchable[f.Name] = true
		}
	}
	for _, doc := range docs {
		key, err := schema.KeyOf(def, doc)
		if err != nil {
			return err
		}
		if pos, exists := idx.byKey[key]; exists {
			idx.docs[pos].doc = doc
			continue
		}
		idx.byKey[key] = len(idx.docs)
		idx.docs = append(idx.docs, &document{key: key, doc: doc})
	}
	e.rebuild(idx)

	e.mu.Lock()
	e.indexes[name] = idx
	e.mu.Unlock()

	e.logger.Debug("text_index_built",
		slog.String("index", name),
		slog.Int("documents", len(idx.docs)),
		slog.Int("terms", len(idx.vocab)))
	return nil
}

// AddDocument inserts or replaces doc and rebuilds the index.
// A replaced document keeps its position.
func (e *Engine) AddDocument(name string, doc schema.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indexes[name]
	if !ok {
		return serrors.IndexNotFound(name)
	}
	key, err := schema.KeyOf(schema.IndexDefinition{Name: name, Fields: idx.fields}, doc)
	if err != nil {
		return err
	}

	next := idx.copyDocs()
	if pos, exists := next.byKey[key]; exists {
		next.docs[pos] = &document{key: key, doc: doc}
	} else {
		next.byKey[key] = len(next.docs)
		next.docs = append(next.docs, &document{key: key, doc: doc})
	}
	e.rebuild(next)
	e.indexes[name] = next
	return nil
}

// RemoveDocument removes the document with key and rebuilds the index.
// Removing an absent key is a no-op.
func (e *Engine) RemoveDocument(name, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indexes[name]
	if !ok {
		return serrors.IndexNotFound(name)
	}
	pos, exists := idx.byKey[key]
	if !exists {
		return nil
	}

	next := idx.copyDocs()
	next.docs = slices.Delete(next.docs, pos, pos+1)
	next.byKey = make(map[string]int, len(next.docs))
	for i, d := range next.docs {
		next.byKey[d.key] = i
	}
	e.rebuild(next)
	e.indexes[name] = next
	return nil
}

// Drop discards the index.
func (e *Engine) Drop(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.indexes, name)
}

// DropAll discards every index.
func (e *Engine) DropAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indexes = make(map[string]*index)
}

// Has reports whether the index exists.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.indexes[name]
	return ok
}

// Search runs text against the index. Empty text or "*" returns every
// document with score 1. Unknown indexes and malformed queries give an
// empty result; malformed queries are logged.
func (e *Engine) Search(name, text string, opts Options) Result {
	e.mu.RLock()
	idx, ok := e.indexes[name]
	e.mu.RUnlock()
	if !ok {
		e.logger.Debug("search_unknown_index", slog.String("index", name))
		return Result{Hits: []Hit{}}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "*" {
		hits := make([]Hit, len(idx.docs))
		for i, d := range idx.docs {
			hits[i] = Hit{Key: d.key, Document: d.doc, Score: 1.0}
		}
		return Result{Hits: hits, Count: len(hits)}
	}

	q, err := ParseQuery(trimmed, e.analyzer, idx.searchable, e.fuzzyDistance, ShouldAutoPrefix(trimmed))
	if err != nil {
		e.logger.Warn("search_malformed_query",
			slog.String("index", name),
			slog.String("query", text),
			slog.String("error", err.Error()))
		return Result{Hits: []Hit{}, Malformed: true}
	}

	hits := idx.score(q, opts.Mode)
	return Result{Hits: hits, Count: len(hits)}
}

// copyDocs returns a new index sharing field metadata with a copy of the
// document list, so readers of the old index are unaffected.
func (idx *index) copyDocs() *index {
	next := &index{
		fields:     idx.fields,
		keyField:   idx.keyField,
		searchable: idx.searchable,
		docs:       make([]*document, len(idx.docs)),
		byKey:      make(map[string]int, len(idx.docs)),
	}
	for i, d := range idx.docs {
		next.docs[i] = &document{key: d.key, doc: d.doc}
		next.byKey[d.key] = i
	}
	return next
}

// rebuild recomputes term statistics for every document of idx.
func (e *Engine) rebuild(idx *index) {
	idx.df = make(map[string]int)
	for _, d := range idx.docs {
		d.lens = make(map[string]int)
		d.freqs = make(map[string]map[string]int)
		for _, f := range idx.fields {
			if !idx.searchable[f.Name] {
				continue
			}
			for _, text := range fieldTexts(d.doc[f.Name]) {
				for _, term := range e.analyzer.Terms(text) {
					byField, ok := d.freqs[term]
					if !ok {
						byField = make(map[string]int)
						d.freqs[term] = byField
					}
					byField[f.Name]++
					d.lens[f.Name]++
				}
			}
		}
		for term := range d.freqs {
			idx.df[term]++
		}
	}

	idx.vocab = make([]string, 0, len(idx.df))
	for term := range idx.df {
		idx.vocab = append(idx.vocab, term)
	}
	sort.Strings(idx.vocab)
}

func fieldTexts(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case nil:
		return nil
	}
	items, ok := schema.AsSlice(v)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// weightedTerm is an index term a clause expands to.
type weightedTerm struct {
	term   string
	weight float64
}

func (idx *index) expand(c Clause) []weightedTerm {
	switch c.Kind {
	case MatchPrefix:
		seen := make(map[string]bool)
		var out []weightedTerm
		for _, term := range c.Terms {
			if _, ok := idx.df[term]; ok && !seen[term] {
				seen[term] = true
				out = append(out, weightedTerm{term: term, weight: 1})
			}
		}
		for _, prefix := range []string{c.Raw, c.Stem} {
			if prefix == "" {
				continue
			}
			start := sort.SearchStrings(idx.vocab, prefix)
			for _, term := range idx.vocab[start:] {
				if !strings.HasPrefix(term, prefix) {
					break
				}
				if !seen[term] {
					seen[term] = true
					out = append(out, weightedTerm{term: term, weight: 1})
				}
			}
		}
		return out

	case MatchFuzzy:
		var out []weightedTerm
		for _, term := range idx.vocab {
			if d := search.LevenshteinDistance(c.Raw, term); d <= c.Fuzziness {
				out = append(out, weightedTerm{term: term, weight: 1 / float64(1+d)})
			}
		}
		return out

	default:
		out := make([]weightedTerm, 0, len(c.Terms))
		for _, term := range c.Terms {
			if _, ok := idx.df[term]; ok {
				out = append(out, weightedTerm{term: term, weight: 1})
			}
		}
		return out
	}
}

func (idx *index) idf(term string) float64 {
	df := idx.df[term]
	if df == 0 {
		return 0
	}
	return math.Log(1 + float64(len(idx.docs))/float64(df))
}

// clauseScore returns the clause's contribution to d and whether it matched.
func (idx *index) clauseScore(c Clause, terms []weightedTerm, d *document) (float64, bool) {
	var score float64
	matched := false
	for _, wt := range terms {
		byField, ok := d.freqs[wt.term]
		if !ok {
			continue
		}
		idf := idx.idf(wt.term)
		for field, count := range byField {
			if c.Field != "" && field != c.Field {
				continue
			}
			matched = true
			tf := float64(count) / float64(d.lens[field])
			score += FieldBoost(field) * tf * idf * c.Boost * wt.weight
		}
	}
	return score, matched
}

func (idx *index) score(q Query, mode SearchMode) []Hit {
	if len(q.Clauses) == 0 {
		return []Hit{}
	}

	expansions := make([][]weightedTerm, len(q.Clauses))
	for i, c := range q.Clauses {
		expansions[i] = idx.expand(c)
	}
	positive := q.positive()

	type scored struct {
		d     *document
		score float64
	}
	var matches []scored

	for _, d := range idx.docs {
		total := 0.0
		anyMatched := false
		ok := true
		for i, c := range q.Clauses {
			s, matched := idx.clauseScore(c, expansions[i], d)
			switch c.Occur {
			case MustNot:
				if matched {
					ok = false
				}
			case Must:
				if !matched {
					ok = false
				}
			default:
				if !matched && mode == ModeAll {
					ok = false
				}
			}
			if !ok {
				break
			}
			if matched && c.Occur != MustNot {
				total += s
				anyMatched = true
			}
		}
		if !ok {
			continue
		}
		if !positive {
			matches = append(matches, scored{d: d, score: 1.0})
			continue
		}
		if anyMatched {
			matches = append(matches, scored{d: d, score: total})
		}
	}

	slices.SortStableFunc(matches, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{Key: m.d.key, Document: m.d.doc, Score: m.score}
	}
	return hits
}
