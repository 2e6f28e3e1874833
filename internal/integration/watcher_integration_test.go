package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharethrift/searchindex/internal/reconcile"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
	"github.com/sharethrift/searchindex/internal/watcher"
)

func writeDoc(t *testing.T, path string, doc schema.Document) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func readDoc(t *testing.T, path string) schema.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc schema.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func nextBatch(t *testing.T, events <-chan []watcher.FileEvent) []watcher.FileEvent {
	t.Helper()
	select {
	case batch, ok := <-events:
		require.True(t, ok, "events closed")
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for file event")
		return nil
	}
}

func TestIntegration_WatcherDrivesReconcile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: a document file, a watcher on it and a reconciler with state
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := startService(t)
	indexer := &countingIndexer{Service: svc}
	rec := reconcile.New(indexer, reconcile.WithLogger(quietLogger()), reconcile.WithWait(noWait))
	state := &reconcile.State{}

	path := filepath.Join(t.TempDir(), "listing.json")
	writeDoc(t, path, listingsDocs()[0])
	_, err := rec.UpdateIndexWithRetry(ctx, listingsDef(), readDoc(t, path), state)
	require.NoError(t, err)

	w, err := watcher.New(watcher.Options{DebounceWindow: 20 * time.Millisecond}, path)
	require.NoError(t, err)
	w.SetLogger(quietLogger())
	events := w.Events()
	go func() { _ = w.Run(ctx) }()
	<-w.Ready()

	// When: the price changes on disk
	doc := listingsDocs()[0]
	doc["price"] = 450
	writeDoc(t, path, doc)
	nextBatch(t, events)
	_, err = rec.UpdateIndexWithRetry(ctx, listingsDef(), readDoc(t, path), state)
	require.NoError(t, err)

	// Then: the index reflects the new price
	res, err := svc.Search(ctx, "listings", "", &search.Options{Filter: "price eq 450"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, int64(2), indexer.writes.Load())

	// When: the file is rewritten with only a new updatedAt
	doc["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	writeDoc(t, path, doc)
	nextBatch(t, events)
	_, err = rec.UpdateIndexWithRetry(ctx, listingsDef(), readDoc(t, path), state)
	require.NoError(t, err)

	// Then: no further write happens
	assert.Equal(t, int64(2), indexer.writes.Load())
}

func TestIntegration_WatcherReportsDeletion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "listing.json")
	writeDoc(t, path, listingsDocs()[1])

	w, err := watcher.New(watcher.Options{DebounceWindow: 20 * time.Millisecond}, path)
	require.NoError(t, err)
	w.SetLogger(quietLogger())
	events := w.Events()
	go func() { _ = w.Run(ctx) }()
	<-w.Ready()

	require.NoError(t, os.Remove(path))

	batch := nextBatch(t, events)
	require.Len(t, batch, 1)
	assert.Equal(t, watcher.OpDelete, batch[0].Operation)
}
