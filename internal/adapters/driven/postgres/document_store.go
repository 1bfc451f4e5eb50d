package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	query := `
		INSERT INTO documents (id, filename, content, status, fail_reason, chunk_count, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			content = EXCLUDED.content,
			status = EXCLUDED.status,
			fail_reason = EXCLUDED.fail_reason,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Text,
		string(doc.Status),
		doc.FailReason,
		doc.ChunkCount,
		doc.UploadedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, filename, content, status, fail_reason, chunk_count, uploaded_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Text,
		&status,
		&doc.FailReason,
		&doc.ChunkCount,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

// List retrieves all documents, most recently uploaded first. Document
// text is not loaded; listings only need metadata.
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	query := `
		SELECT id, filename, status, fail_reason, chunk_count, uploaded_at, updated_at
		FROM documents
		ORDER BY uploaded_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var status string
		if err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&status,
			&doc.FailReason,
			&doc.ChunkCount,
			&doc.UploadedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document. Idempotent.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Ping checks if the store backend is healthy
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
