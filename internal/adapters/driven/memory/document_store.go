package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps document metadata and text in process memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

// Save inserts or updates a document.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// Get returns the document with the given id.
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

// List returns all documents, newest first.
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		doc := d
		docs = append(docs, &doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

// Delete removes a document. Deleting an unknown id is a no-op.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return nil
}
