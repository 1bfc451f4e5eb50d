// Package memory provides in-process adapters backed by process memory.
// They serve single-instance deployments and tests; multi-instance
// deployments swap in the Redis and PostgreSQL adapters.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex with cosine similarity over
// per-document entry sets.
//
// Upsert builds the document's replacement entry set outside the lock
// and swaps it in under the write lock, so a concurrent Search observes
// either the old complete set or the new complete set - never a mix of
// two upsert generations.
type VectorIndex struct {
	mu         sync.RWMutex
	dimensions int
	docs       map[string][]storedEntry
	seq        int // global insertion counter, breaks score ties stably
}

type storedEntry struct {
	entry domain.IndexEntry
	seq   int
}

// NewVectorIndex creates an empty index. dimensions is the expected
// embedding size; zero disables dimension checking.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dimensions: dimensions,
		docs:       make(map[string][]storedEntry),
	}
}

// Upsert replaces all entries for a document atomically. Idempotent.
func (v *VectorIndex) Upsert(ctx context.Context, documentID string, entries []domain.IndexEntry) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	for i, e := range entries {
		if v.dimensions > 0 && len(e.Embedding) != v.dimensions {
			return fmt.Errorf("%w: entry %d has dimension %d, index expects %d",
				domain.ErrInvalidInput, i, len(e.Embedding), v.dimensions)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	replacement := make([]storedEntry, len(entries))
	for i, e := range entries {
		v.seq++
		replacement[i] = storedEntry{entry: e, seq: v.seq}
	}
	// Single assignment under the lock: delete-then-insert as one step
	v.docs[documentID] = replacement
	return nil
}

// Search returns at most topK entries ranked by cosine similarity,
// descending. Equal scores preserve insertion order.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be > 0, got %d", domain.ErrInvalidInput, topK)
	}
	if v.dimensions > 0 && len(vector) != v.dimensions {
		return nil, fmt.Errorf("%w: query vector dimension %d, index expects %d",
			domain.ErrInvalidInput, len(vector), v.dimensions)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	type scored struct {
		chunk domain.RetrievedChunk
		seq   int
	}
	var all []scored
	for _, entries := range v.docs {
		for _, se := range entries {
			if !filter.Matches(&se.entry) {
				continue
			}
			all = append(all, scored{
				chunk: domain.RetrievedChunk{
					Content:    se.entry.Chunk.Content,
					Score:      cosineSimilarity(vector, se.entry.Embedding),
					DocumentID: se.entry.Chunk.DocumentID,
					Position:   se.entry.Chunk.Position,
				},
				seq: se.seq,
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
	results := make([]domain.RetrievedChunk, len(all))
	for i, s := range all {
		results[i] = s.chunk
	}
	return results, nil
}

// Delete removes all entries for a document. Idempotent.
func (v *VectorIndex) Delete(ctx context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.docs, documentID)
	return nil
}

// Count returns the number of entries stored for a document.
func (v *VectorIndex) Count(ctx context.Context, documentID string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docs[documentID]), nil
}

// HealthCheck always succeeds for the in-process index.
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
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
