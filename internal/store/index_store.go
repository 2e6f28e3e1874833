package store

import (
	"slices"
	"sort"
	"sync"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/schema"
)

type indexEntry struct {
	def   schema.IndexDefinition
	docs  []schema.Document
	byKey map[string]int
}

// IndexStore holds index definitions and their documents in insertion order.
// The store is safe for concurrent use. Each call is atomic on its own, but
// there is no isolation across calls.
type IndexStore struct {
	mu      sync.RWMutex
	indexes map[string]*indexEntry
}

// NewIndexStore creates an empty store.
func NewIndexStore() *IndexStore {
	return &IndexStore{indexes: make(map[string]*indexEntry)}
}

// Create adds def if no index with its name exists.
// Returns false when the index was already present.
func (s *IndexStore) Create(def schema.IndexDefinition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return false
	}
	s.indexes[def.Name] = newEntry(def)
	return true
}

// Replace installs def, discarding any documents of the previous definition.
func (s *IndexStore) Replace(def schema.IndexDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[def.Name] = newEntry(def)
}

func newEntry(def schema.IndexDefinition) *indexEntry {
	return &indexEntry{def: def.Clone(), byKey: make(map[string]int)}
}

// Drop removes the index and its documents. Returns false if it was absent.
func (s *IndexStore) Drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[name]; !ok {
		return false
	}
	delete(s.indexes, name)
	return true
}

// DropAll removes every index.
func (s *IndexStore) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = make(map[string]*indexEntry)
}

// Definition returns a copy of the index definition.
func (s *IndexStore) Definition(name string) (schema.IndexDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.indexes[name]
	if !ok {
		return schema.IndexDefinition{}, false
	}
	return e.def.Clone(), true
}

// Names returns the index names in lexical order.
func (s *IndexStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put stores doc under key. An existing document with the same key is
// replaced in place and keeps its position.
func (s *IndexStore) Put(name, key string, doc schema.Document) (replaced bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.indexes[name]
	if !ok {
		return false, serrors.IndexNotFound(name)
	}
	if pos, exists := e.byKey[key]; exists {
		e.docs[pos] = doc
		return true, nil
	}
	e.byKey[key] = len(e.docs)
	e.docs = append(e.docs, doc)
	return false, nil
}

// Delete removes the document with key. Returns false if it was absent.
func (s *IndexStore) Delete(name, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.indexes[name]
	if !ok {
		return false, serrors.IndexNotFound(name)
	}
	pos, exists := e.byKey[key]
	if !exists {
		return false, nil
	}

	e.docs = slices.Delete(e.docs, pos, pos+1)
	delete(e.byKey, key)
	for k, p := range e.byKey {
		if p > pos {
			e.byKey[k] = p - 1
		}
	}
	return true, nil
}

// Documents returns the documents of the index in insertion order.
// The returned slice is a copy; the documents are shared.
func (s *IndexStore) Documents(name string) ([]schema.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.indexes[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(e.docs), true
}

// Len returns the number of documents in the index.
func (s *IndexStore) Len(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.indexes[name]
	if !ok {
		return 0, false
	}
	return len(e.docs), true
}
