package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// VectorIndex stores embeddings and answers nearest-neighbour queries.
//
// Upsert for a document is atomic with respect to Search: a concurrent
// search observes either the document's previous complete entry set or
// the new complete set, never a partial mix.
type VectorIndex interface {
	// Upsert replaces all entries for a document. Idempotent: prior
	// entries for the document are removed first, so re-ingesting never
	// leaves ghost vectors.
	Upsert(ctx context.Context, documentID string, entries []domain.IndexEntry) error

	// Search returns at most topK entries ranked by similarity, best
	// first. Ties preserve insertion order.
	Search(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]domain.RetrievedChunk, error)

	// Delete removes all entries for a document. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, documentID string) error

	// Count returns the number of entries stored for a document
	Count(ctx context.Context, documentID string) (int, error)

	// HealthCheck verifies the index is available
	HealthCheck(ctx context.Context) error
}
