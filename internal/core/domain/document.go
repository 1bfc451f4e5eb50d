package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline
type DocumentStatus string

const (
	// DocumentStatusPending means the document is uploaded but not yet processed
	DocumentStatusPending DocumentStatus = "pending"
	// DocumentStatusChunking means the document text is being split into chunks
	DocumentStatusChunking DocumentStatus = "chunking"
	// DocumentStatusEmbedding means chunk embeddings are being generated
	DocumentStatusEmbedding DocumentStatus = "embedding"
	// DocumentStatusReady means every chunk is embedded and indexed
	DocumentStatusReady DocumentStatus = "ready"
	// DocumentStatusFailed means ingestion failed; the cause is recorded on the document
	DocumentStatusFailed DocumentStatus = "failed"
)

// CanTransitionTo reports whether the status may move to next.
// Transitions are one-directional except that failed documents may be
// resubmitted, restarting from pending.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusPending:
		return next == DocumentStatusChunking || next == DocumentStatusFailed
	case DocumentStatusChunking:
		return next == DocumentStatusEmbedding || next == DocumentStatusFailed
	case DocumentStatusEmbedding:
		return next == DocumentStatusReady || next == DocumentStatusFailed
	case DocumentStatusFailed:
		return next == DocumentStatusPending
	default:
		return false
	}
}

// Document represents an uploaded document in the knowledge base
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Text       string         `json:"-"` // raw text, not exposed in listings
	Status     DocumentStatus `json:"status"`
	FailReason string         `json:"fail_reason,omitempty"`
	ChunkCount int            `json:"chunk_count"`
	UploadedAt time.Time      `json:"uploaded_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Chunk is a bounded text segment of a document, the unit of embedding
// and retrieval. Immutable once created.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"` // zero-based sequence within the document
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"` // offsets into the source text
	EndChar    int    `json:"end_char"`
}

// IndexEntry pairs a chunk with its embedding for the vector index
type IndexEntry struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}
