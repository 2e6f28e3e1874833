package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sharethrift/searchindex/internal/config"
	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/store"
	"github.com/sharethrift/searchindex/internal/telemetry"
	"github.com/sharethrift/searchindex/internal/textsearch"
)

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateStopped
)

// Service owns an index store and a text search engine and exposes the
// index, document and query operations over them.
//
// Writes are serialised so the store and the engine see the same order.
// Reads run concurrently with each other and with writes; a search observes
// each component atomically but not the pair.
type Service struct {
	store   *store.IndexStore
	engine  *textsearch.Engine
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger

	defaultTop    int
	maxTop        int
	fuzzyDistance int

	mu      sync.RWMutex // guards state
	state   lifecycle
	writeMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics records every search in m.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStore uses st instead of a new empty store.
func WithStore(st *store.IndexStore) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithSearchConfig applies page size and fuzzy distance settings.
func WithSearchConfig(cfg config.SearchConfig) Option {
	return func(s *Service) {
		if cfg.DefaultTop > 0 {
			s.defaultTop = cfg.DefaultTop
		}
		if cfg.MaxTop > 0 {
			s.maxTop = cfg.MaxTop
		}
		if cfg.FuzzyDistance >= 0 && cfg.FuzzyDistance <= 2 {
			s.fuzzyDistance = cfg.FuzzyDistance
		}
	}
}

// NewService creates a stopped service. Call Startup before use.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		logger:        slog.Default(),
		defaultTop:    DefaultTop,
		maxTop:        MaxTop,
		fuzzyDistance: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewIndexStore()
	}
	if s.defaultTop > s.maxTop {
		s.defaultTop = s.maxTop
	}

	engine, err := textsearch.NewEngine(
		textsearch.WithLogger(s.logger),
		textsearch.WithFuzzyDistance(s.fuzzyDistance),
	)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Startup makes the service usable and builds the text index of every index
// already in the store. Calling it on a running service is a no-op. A
// stopped service can be started again and begins empty.
func (s *Service) Startup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRunning {
		return nil
	}

	// A store supplied through WithStore may already hold indexes.
	names := s.store.Names()
	for _, name := range names {
		def, _ := s.store.Definition(name)
		docs, _ := s.store.Documents(name)
		if err := s.engine.BuildIndex(name, def.Fields, docs); err != nil {
			return err
		}
	}

	s.state = stateRunning
	s.logger.Info("search_service_started", slog.Int("indexes", len(names)))
	return nil
}

// Shutdown drops every index and stops the service. Idempotent.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		s.state = stateStopped
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dropped := len(s.store.Names())
	s.store.DropAll()
	s.engine.DropAll()
	s.state = stateStopped
	s.logger.Info("search_service_stopped", slog.Int("indexes_dropped", dropped))
	return ctx.Err()
}

// Running reports whether the service accepts operations.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == stateRunning
}

func (s *Service) checkRunning(op string) error {
	if s.Running() {
		return nil
	}
	return serrors.New(serrors.ErrCodeNotStarted, "search service is not started", nil).
		WithDetail("operation", op).
		WithSuggestion("call Startup before using the service")
}

// CreateIndexIfNotExists creates the index described by def. An existing
// index of the same name is left untouched and its definition returned.
func (s *Service) CreateIndexIfNotExists(ctx context.Context, def schema.IndexDefinition) (schema.IndexDefinition, error) {
	if err := s.checkRunning("createIndexIfNotExists"); err != nil {
		return schema.IndexDefinition{}, err
	}
	if err := ctx.Err(); err != nil {
		return schema.IndexDefinition{}, err
	}

	normalized, err := def.Normalize()
	if err != nil {
		return schema.IndexDefinition{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.store.Create(normalized) {
		existing, _ := s.store.Definition(normalized.Name)
		return existing, nil
	}
	if err := s.engine.BuildIndex(normalized.Name, normalized.Fields, nil); err != nil {
		s.store.Drop(normalized.Name)
		return schema.IndexDefinition{}, err
	}

	s.logger.Info("index_created",
		slog.String("index", normalized.Name),
		slog.Int("fields", len(normalized.Fields)))
	return normalized, nil
}

// CreateOrUpdateIndexDefinition installs def under name. Redefining an
// existing index discards its documents.
func (s *Service) CreateOrUpdateIndexDefinition(ctx context.Context, name string, def schema.IndexDefinition) (schema.IndexDefinition, error) {
	if err := s.checkRunning("createOrUpdateIndexDefinition"); err != nil {
		return schema.IndexDefinition{}, err
	}
	if err := ctx.Err(); err != nil {
		return schema.IndexDefinition{}, err
	}

	if def.Name == "" {
		def.Name = name
	}
	if def.Name != name {
		return schema.IndexDefinition{}, serrors.Newf(serrors.ErrCodeInvalidInput,
			"definition name %q does not match index %q", def.Name, name)
	}
	normalized, err := def.Normalize()
	if err != nil {
		return schema.IndexDefinition{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	discarded, existed := s.store.Len(name)
	if err := s.engine.BuildIndex(name, normalized.Fields, nil); err != nil {
		return schema.IndexDefinition{}, err
	}
	s.store.Replace(normalized)

	s.logger.Info("index_defined",
		slog.String("index", name),
		slog.Bool("replaced", existed),
		slog.Int("documents_discarded", discarded))
	return normalized, nil
}

// DeleteIndex removes the index and all of its documents.
func (s *Service) DeleteIndex(ctx context.Context, name string) error {
	if err := s.checkRunning("deleteIndex"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.store.Drop(name) {
		return serrors.IndexNotFound(name)
	}
	s.engine.Drop(name)
	s.logger.Info("index_deleted", slog.String("index", name))
	return nil
}

// IndexDocument validates doc against the index schema and upserts it by key.
func (s *Service) IndexDocument(ctx context.Context, indexName string, doc schema.Document) error {
	if err := s.checkRunning("indexDocument"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	def, ok := s.store.Definition(indexName)
	if !ok {
		return serrors.IndexNotFound(indexName)
	}
	normalized, err := schema.ValidateDocument(def, doc)
	if err != nil {
		return err
	}
	key, err := schema.KeyOf(def, normalized)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	replaced, err := s.store.Put(indexName, key, normalized)
	if err != nil {
		return err
	}
	if err := s.engine.AddDocument(indexName, normalized); err != nil {
		return err
	}

	s.logger.Debug("document_indexed",
		slog.String("index", indexName),
		slog.String("key", key),
		slog.Bool("replaced", replaced))
	return nil
}

// DeleteDocument removes the document with the same key as doc.
func (s *Service) DeleteDocument(ctx context.Context, indexName string, doc schema.Document) error {
	if err := s.checkRunning("deleteDocument"); err != nil {
		return err
	}
	def, ok := s.store.Definition(indexName)
	if !ok {
		return serrors.IndexNotFound(indexName)
	}
	key, err := schema.KeyOf(def, doc)
	if err != nil {
		return err
	}
	return s.DeleteDocumentByKey(ctx, indexName, key)
}

// DeleteDocumentByKey removes the document with key. Removing an absent
// document is not an error.
func (s *Service) DeleteDocumentByKey(ctx context.Context, indexName, key string) error {
	if err := s.checkRunning("deleteDocument"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed, err := s.store.Delete(indexName, key)
	if err != nil {
		return err
	}
	if removed {
		if err := s.engine.RemoveDocument(indexName, key); err != nil {
			return err
		}
	}

	s.logger.Debug("document_deleted",
		slog.String("index", indexName),
		slog.String("key", key),
		slog.Bool("found", removed))
	return nil
}

// IndexDefinition returns the definition of the named index.
func (s *Service) IndexDefinition(name string) (schema.IndexDefinition, error) {
	if err := s.checkRunning("indexDefinition"); err != nil {
		return schema.IndexDefinition{}, err
	}
	def, ok := s.store.Definition(name)
	if !ok {
		return schema.IndexDefinition{}, serrors.IndexNotFound(name)
	}
	return def, nil
}

// IndexNames returns the index names in lexical order.
func (s *Service) IndexNames() ([]string, error) {
	if err := s.checkRunning("indexNames"); err != nil {
		return nil, err
	}
	return s.store.Names(), nil
}

// DocumentCount returns the number of documents in the index.
func (s *Service) DocumentCount(name string) (int, error) {
	if err := s.checkRunning("documentCount"); err != nil {
		return 0, err
	}
	n, ok := s.store.Len(name)
	if !ok {
		return 0, serrors.IndexNotFound(name)
	}
	return n, nil
}

// Metrics returns the telemetry collector, or nil.
func (s *Service) Metrics() *telemetry.QueryMetrics {
	return s.metrics
}
