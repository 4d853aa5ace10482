package inmemory

import (
	"context"
	"sync"

	"github.com/mandelbrot-ai/neural-engine/internal/registry"
)

// Store is the default in-memory registry: a mutex-guarded map plus an
// insertion-order key list so List is stable across calls. Re-uploading an
// identifier replaces its entry but keeps its original position.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]registry.StoredDocument
	order []string
}

func NewStore() *Store {
	return &Store{docs: make(map[string]registry.StoredDocument)}
}

func (s *Store) Upsert(_ context.Context, doc registry.StoredDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.Identifier]; !exists {
		s.order = append(s.order, doc.Identifier)
	}
	s.docs[doc.Identifier] = doc
	return nil
}

func (s *Store) Get(_ context.Context, identifier string) (registry.StoredDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[identifier]
	return doc, ok, nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}
