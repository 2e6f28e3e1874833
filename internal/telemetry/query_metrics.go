// Package telemetry records in-process query statistics for the search
// service. Nothing leaves the process.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryType mirrors the queryType search option.
type QueryType string

const (
	QueryTypeSimple QueryType = "simple"
	QueryTypeFull   QueryType = "full"
	QueryTypeAll    QueryType = "all" // empty or "*" text
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1    LatencyBucket = "p1"    // <1ms
	BucketP10   LatencyBucket = "p10"   // 1-10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP1000 LatencyBucket = "p1000" // >=100ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketP1000
	}
}

// QueryEvent is a single search call.
type QueryEvent struct {
	Index       string
	Query       string
	QueryType   QueryType
	Filter      string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query matched nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// ExtractTerms returns the lowercased words of a query with operator
// characters trimmed. Words shorter than three runes are dropped.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if i := strings.IndexByte(w, ':'); i >= 0 {
			w = w[i+1:]
		}
		w = strings.Trim(w, `+-"*~^()0123456789`)
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryMetricsSnapshot is an immutable copy of the collected metrics.
type QueryMetricsSnapshot struct {
	QueryTypeCounts     map[QueryType]int64     `json:"query_type_counts"`
	IndexCounts         map[string]int64        `json:"index_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	FilteredCount       int64                   `json:"filtered_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	ExactRepeatRate     float64                 `json:"exact_repeat_rate"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of zero-result queries in percent.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetricsConfig configures the collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int // default 100
	ZeroResultsCapacity   int // default 100
	RecentQueriesCapacity int // default 500
}

// DefaultQueryMetricsConfig returns the default capacities.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics aggregates query events. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	queryTypes       map[QueryType]int64
	indexes          map[string]int64
	topTerms         *lru.Cache[string, int64]
	zeroResults      *CircularBuffer[string]
	latencies        map[LatencyBucket]int64
	recentQueries    *lru.Cache[string, struct{}]
	totalQueries     int64
	zeroResultCount  int64
	filteredCount    int64
	exactRepeatCount int64
	startTime        time.Time
}

// NewQueryMetrics creates a collector with the default configuration.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector, replacing non-positive
// capacities with their defaults.
func NewQueryMetricsWithConfig(cfg QueryMetricsConfig) *QueryMetrics {
	def := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails on a non-positive size.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		queryTypes:    make(map[QueryType]int64),
		indexes:       make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds an event to the aggregates.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.queryTypes[event.QueryType]++
	m.indexes[event.Index]++
	m.latencies[LatencyToBucket(event.Latency)]++
	if event.Filter != "" {
		m.filteredCount++
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}

	key := hashQuery(event.Index, event.Query, event.Filter)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(key, struct{}{})
}

func hashQuery(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortStableFunc(topTerms, func(a, b TermCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	var repeatRate float64
	if m.totalQueries > 0 {
		repeatRate = float64(m.exactRepeatCount) / float64(m.totalQueries)
	}

	return &QueryMetricsSnapshot{
		QueryTypeCounts:     copyMap(m.queryTypes),
		IndexCounts:         copyMap(m.indexes),
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: copyMap(m.latencies),
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		FilteredCount:       m.filteredCount,
		ExactRepeatCount:    m.exactRepeatCount,
		ExactRepeatRate:     repeatRate,
		Since:               m.startTime,
	}
}

// Reset clears all aggregates.
func (m *QueryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryTypes = make(map[QueryType]int64)
	m.indexes = make(map[string]int64)
	m.latencies = make(map[LatencyBucket]int64)
	m.topTerms.Purge()
	m.recentQueries.Purge()
	m.zeroResults.Clear()
	m.totalQueries = 0
	m.zeroResultCount = 0
	m.filteredCount = 0
	m.exactRepeatCount = 0
	m.startTime = time.Now()
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
