package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
)

// Indexer is the write side of the search service.
type Indexer interface {
	CreateIndexIfNotExists(ctx context.Context, def schema.IndexDefinition) (schema.IndexDefinition, error)
	IndexDocument(ctx context.Context, indexName string, doc schema.Document) error
	DeleteDocumentByKey(ctx context.Context, indexName, key string) error
}

// State is the reconciliation bookkeeping held by an entity.
type State struct {
	Hash        string    `json:"hash" yaml:"hash"`
	LastIndexed time.Time `json:"lastIndexed" yaml:"lastIndexed"`
}

// Outcome describes what a reconciliation did.
type Outcome string

const (
	// OutcomeUnchanged means the hash matched and nothing was written.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeIndexed means the document was written.
	OutcomeIndexed Outcome = "indexed"
	// OutcomeFailed means every attempt failed.
	OutcomeFailed Outcome = "failed"
)

// Item is one entity for UpdateAll.
type Item struct {
	Doc   schema.Document
	State *State
}

// Summary counts UpdateAll outcomes.
type Summary struct {
	Indexed   int
	Unchanged int
	Failed    int
}

// Reconciler writes documents through an Indexer with change detection and
// retries.
type Reconciler struct {
	indexer     Indexer
	hasher      *Hasher
	retry       serrors.RetryConfig
	breaker     *serrors.CircuitBreaker
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger for reconciliation and retry records.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// WithRetryConfig sets attempts and backoff.
func WithRetryConfig(cfg serrors.RetryConfig) Option {
	return func(r *Reconciler) {
		r.retry = cfg
	}
}

// WithWait replaces the backoff wait, typically in tests.
func WithWait(wait serrors.WaitFunc) Option {
	return func(r *Reconciler) {
		r.retry.Wait = wait
	}
}

// WithBreaker fails writes fast while cb is open. An exhausted retry
// sequence counts as one breaker failure.
func WithBreaker(cb *serrors.CircuitBreaker) Option {
	return func(r *Reconciler) {
		r.breaker = cb
	}
}

// WithConcurrency bounds UpdateAll fan-out.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithClock sets the source of LastIndexed timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithExcludedFields adds per-run fields that do not affect the hash.
func WithExcludedFields(fields ...string) Option {
	return func(r *Reconciler) {
		r.hasher = NewHasher(fields...)
	}
}

// New creates a Reconciler writing through indexer.
func New(indexer Indexer, opts ...Option) *Reconciler {
	r := &Reconciler{
		indexer:     indexer,
		hasher:      defaultHasher,
		retry:       serrors.DefaultRetryConfig(),
		concurrency: 4,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry.Logger == nil {
		r.retry.Logger = r.logger
	}
	return r
}

// Hasher returns the hasher used for change detection.
func (r *Reconciler) Hasher() *Hasher {
	return r.hasher
}

// UpdateIndexWithRetry writes doc into the index described by def unless
// state already records its hash. On a skip it returns state.LastIndexed, or
// the current time if none was recorded. On success it updates state and
// returns the new LastIndexed. On failure state is left untouched and the
// error of the last attempt is returned.
func (r *Reconciler) UpdateIndexWithRetry(ctx context.Context, def schema.IndexDefinition, doc schema.Document, state *State) (time.Time, error) {
	_, at, err := r.update(ctx, def, doc, state)
	return at, err
}

func (r *Reconciler) update(ctx context.Context, def schema.IndexDefinition, doc schema.Document, state *State) (Outcome, time.Time, error) {
	hash, err := r.hasher.Hash(doc)
	if err != nil {
		return OutcomeFailed, time.Time{}, err
	}
	key := documentKey(def, doc)

	if state != nil && state.Hash != "" && state.Hash == hash {
		r.logger.Info("reconcile_no_changes",
			slog.String("index", def.Name),
			slog.String("key", key))
		if !state.LastIndexed.IsZero() {
			return OutcomeUnchanged, state.LastIndexed, nil
		}
		return OutcomeUnchanged, r.now(), nil
	}

	err = r.withRetry(ctx, "update_index", func() error {
		if _, err := r.indexer.CreateIndexIfNotExists(ctx, def); err != nil {
			return err
		}
		return r.indexer.IndexDocument(ctx, def.Name, doc)
	})
	if err != nil {
		return OutcomeFailed, time.Time{}, err
	}

	at := r.now()
	if state != nil {
		state.Hash = hash
		state.LastIndexed = at
	}
	r.logger.Debug("reconcile_indexed",
		slog.String("index", def.Name),
		slog.String("key", key),
		slog.String("hash", hash))
	return OutcomeIndexed, at, nil
}

// DeleteFromIndexWithRetry removes the document with key from the index.
func (r *Reconciler) DeleteFromIndexWithRetry(ctx context.Context, indexName, key string) error {
	return r.withRetry(ctx, "delete_from_index", func() error {
		return r.indexer.DeleteDocumentByKey(ctx, indexName, key)
	})
}

// UpdateAll reconciles items with bounded parallelism. Retries stay
// sequential per item. Every item is attempted; the first error is returned
// once all work has finished.
func (r *Reconciler) UpdateAll(ctx context.Context, def schema.IndexDefinition, items []Item) (Summary, error) {
	var indexed, unchanged, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, item := range items {
		g.Go(func() error {
			outcome, _, err := r.update(ctx, def, item.Doc, item.State)
			switch outcome {
			case OutcomeIndexed:
				indexed.Add(1)
			case OutcomeUnchanged:
				unchanged.Add(1)
			default:
				failed.Add(1)
			}
			return err
		})
	}
	err := g.Wait()

	summary := Summary{
		Indexed:   int(indexed.Load()),
		Unchanged: int(unchanged.Load()),
		Failed:    int(failed.Load()),
	}
	r.logger.Info("reconcile_batch_done",
		slog.String("index", def.Name),
		slog.Int("indexed", summary.Indexed),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("failed", summary.Failed))
	return summary, err
}

func (r *Reconciler) withRetry(ctx context.Context, op string, fn func() error) error {
	cfg := r.retry
	cfg.Operation = op
	attempt := func() error {
		return serrors.Retry(ctx, cfg, fn)
	}
	if r.breaker == nil {
		return attempt()
	}
	return r.breaker.Execute(attempt)
}

func documentKey(def schema.IndexDefinition, doc schema.Document) string {
	key, err := schema.KeyOf(def, doc)
	if err != nil {
		return ""
	}
	return key
}
