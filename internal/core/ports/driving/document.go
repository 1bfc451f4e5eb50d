package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// DocumentService manages the document lifecycle
type DocumentService interface {
	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves all documents with their ingestion status
	List(ctx context.Context) ([]*domain.Document, error)

	// Delete removes a document and all of its index entries. No entry
	// survives the document's deletion.
	Delete(ctx context.Context, id string) error
}
