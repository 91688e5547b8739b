package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []*Document
	ids  map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]int)}
}

// Save stores a validated copy of doc. A document ID can only be saved once.
func (s *MemoryStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[doc.ID]; exists {
		return fmt.Errorf("document %s already stored", doc.ID)
	}
	s.ids[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc.clone())
	return nil
}

// FindAll returns copies of all documents in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*Document, len(s.docs))
	for i, d := range s.docs {
		docs[i] = d.clone()
	}
	return docs, nil
}

// Health always succeeds for the in-memory store.
func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
