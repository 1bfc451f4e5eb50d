package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockVectorIndex is a mock implementation of VectorIndex for testing.
// It keeps entries per document and scores with cosine similarity, like
// the real in-memory adapter, plus failure injection hooks.
type MockVectorIndex struct {
	mu        sync.RWMutex
	entries   map[string][]indexedEntry
	seq       int
	failNext  map[string]error // op name -> error
	filenames map[string]string
}

type indexedEntry struct {
	entry domain.IndexEntry
	seq   int
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		entries:   make(map[string][]indexedEntry),
		failNext:  make(map[string]error),
		filenames: make(map[string]string),
	}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, documentID string, entries []domain.IndexEntry) error {
	if err := m.takeError("upsert"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	replacement := make([]indexedEntry, len(entries))
	for i, e := range entries {
		m.seq++
		replacement[i] = indexedEntry{entry: e, seq: m.seq}
	}
	m.entries[documentID] = replacement
	return nil
}

func (m *MockVectorIndex) Search(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if err := m.takeError("search"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		chunk domain.RetrievedChunk
		seq   int
	}
	var all []scored
	for _, docEntries := range m.entries {
		for _, ie := range docEntries {
			if !filter.Matches(&ie.entry) {
				continue
			}
			all = append(all, scored{
				chunk: domain.RetrievedChunk{
					Content:    ie.entry.Chunk.Content,
					Score:      cosine(vector, ie.entry.Embedding),
					DocumentID: ie.entry.Chunk.DocumentID,
					Position:   ie.entry.Chunk.Position,
				},
				seq: ie.seq,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].chunk.Score != all[j].chunk.Score {
			return all[i].chunk.Score > all[j].chunk.Score
		}
		return all[i].seq < all[j].seq
	})

	if topK < len(all) {
		all = all[:topK]
	}
	result := make([]domain.RetrievedChunk, len(all))
	for i, s := range all {
		result[i] = s.chunk
	}
	return result, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, documentID string) error {
	if err := m.takeError("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, documentID)
	return nil
}

func (m *MockVectorIndex) Count(ctx context.Context, documentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[documentID]), nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockVectorIndex) takeError(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failNext[op]; ok {
		delete(m.failNext, op)
		return err
	}
	return nil
}

// Helper methods for testing

// FailNextOp makes the next call of the named op ("upsert", "search",
// "delete") return err
func (m *MockVectorIndex) FailNextOp(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] = err
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
