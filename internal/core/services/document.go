package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	documentStore driven.DocumentStore
	index         driven.VectorIndex
	logger        *slog.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documentStore driven.DocumentStore, index driven.VectorIndex, logger *slog.Logger) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documentStore: documentStore,
		index:         index,
		logger:        logger,
	}
}

// Get retrieves a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documentStore.Get(ctx, id)
}

// List retrieves all documents, newest first.
func (s *documentService) List(ctx context.Context) ([]*domain.Document, error) {
	return s.documentStore.List(ctx)
}

// Delete removes the document's index entries first, then its record,
// so a half-finished delete never leaves orphaned vectors behind a
// deleted document.
func (s *documentService) Delete(ctx context.Context, id string) error {
	if _, err := s.documentStore.Get(ctx, id); err != nil {
		return err
	}

	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete index entries: %w", err)
	}
	if err := s.documentStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Info("document deleted", "document_id", id)
	return nil
}
