package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentStore persists document metadata. The core treats it as a
// key-value map keyed by document id; chunk vectors live in the
// VectorIndex, never here.
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID, domain.ErrNotFound if absent
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves all documents, most recently uploaded first
	List(ctx context.Context) ([]*domain.Document, error)

	// Delete removes a document. Idempotent.
	Delete(ctx context.Context, id string) error

	// Ping checks if the store backend is healthy
	Ping(ctx context.Context) error
}
