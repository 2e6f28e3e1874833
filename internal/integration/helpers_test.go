package integration

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sharethrift/searchindex/internal/reconcile"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
)

// Integration tests exercise the search service, reconciler, store and
// watcher together.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noWait(context.Context, time.Duration) error { return nil }

func listingsDef() schema.IndexDefinition {
	return schema.IndexDefinition{
		Name: "listings",
		Fields: []schema.SearchField{
			{Name: "id", Type: schema.TypeString, Key: true, Filterable: true},
			{Name: "title", Type: schema.TypeString, Searchable: true, Sortable: true},
			{Name: "description", Type: schema.TypeString, Searchable: true},
			{Name: "category", Type: schema.TypeString, Filterable: true, Facetable: true},
			{Name: "price", Type: schema.TypeDouble, Filterable: true, Sortable: true},
		},
	}
}

func listingsDocs() []schema.Document {
	return []schema.Document{
		{"id": "1", "title": "Mountain Bike", "description": "Trail bike", "category": "sports", "price": 500},
		{"id": "2", "title": "Road Bike", "description": "Carbon frame", "category": "sports", "price": 800},
		{"id": "3", "title": "Camping Tent", "description": "Fits a bike in the porch", "category": "outdoor", "price": 150},
	}
}

func startService(t *testing.T, opts ...search.Option) *search.Service {
	t.Helper()
	svc, err := search.NewService(append([]search.Option{search.WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, svc.Startup(context.Background()))
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc
}

// countingIndexer forwards to a service and counts document writes.
type countingIndexer struct {
	*search.Service
	writes atomic.Int64
	fail   atomic.Int64
}

func (c *countingIndexer) IndexDocument(ctx context.Context, index string, doc schema.Document) error {
	if c.fail.Load() > 0 {
		c.fail.Add(-1)
		return context.DeadlineExceeded
	}
	c.writes.Add(1)
	return c.Service.IndexDocument(ctx, index, doc)
}

var _ reconcile.Indexer = (*countingIndexer)(nil)
