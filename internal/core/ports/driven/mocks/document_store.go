package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	failNext  error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	copied := *doc
	m.documents[doc.ID] = &copied
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]*domain.Document, 0, len(m.documents))
	for _, doc := range m.documents {
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// FailNextSave makes the next Save return err
func (m *MockDocumentStore) FailNextSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}
