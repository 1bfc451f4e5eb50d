package driving

import (
	"context"
)

// IngestService accepts documents and runs the ingestion pipeline
type IngestService interface {
	// SubmitDocument stores the document as pending and enqueues it for
	// ingestion. The text is the extracted plain text; format extraction
	// (PDF, DOCX) happens upstream of the core. Resubmitting a failed
	// document restarts it from pending.
	SubmitDocument(ctx context.Context, text, filename string) (documentID string, err error)

	// IngestDocument runs the pipeline for one document synchronously:
	// chunk, embed, index. Called by the worker. Serialized per document;
	// returns domain.ErrIngestInProgress if another ingestion holds the
	// document lock.
	IngestDocument(ctx context.Context, documentID string) error
}
