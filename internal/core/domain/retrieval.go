package domain

import "time"

// Default retrieval parameters
const (
	DefaultTopK     = 5
	MaxTopK         = 50
	DefaultMinScore = 0.0
)

// RetrieveOptions configures a retrieval request
type RetrieveOptions struct {
	// TopK is the maximum number of chunks to retrieve
	TopK int `json:"top_k"`

	// MinScore drops results below this similarity, even within TopK
	MinScore float64 `json:"min_score"`

	// DedupeByDocument keeps only the best-scoring chunk per document
	DedupeByDocument bool `json:"dedupe_by_document"`

	// Filter restricts the search to matching index entries
	Filter *SearchFilter `json:"filter,omitempty"`
}

// SearchFilter restricts a vector search to a subset of the index
type SearchFilter struct {
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// Matches reports whether the entry passes the filter
func (f *SearchFilter) Matches(e *IndexEntry) bool {
	if f == nil || len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if e.Chunk.DocumentID == id {
			return true
		}
	}
	return false
}

// Normalize applies defaults and bounds to the options
func (o *RetrieveOptions) Normalize() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.TopK > MaxTopK {
		o.TopK = MaxTopK
	}
	if o.MinScore < 0 {
		o.MinScore = DefaultMinScore
	}
}

// RetrievedChunk is a single retrieval hit
type RetrievedChunk struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	Position   int     `json:"position"`
}

// RetrievalResult is the ordered outcome of a retrieval, best match first.
// Ephemeral - constructed per query, never persisted.
type RetrievalResult struct {
	Query  string           `json:"query"`
	Chunks []RetrievedChunk `json:"chunks"`
	Took   time.Duration    `json:"took"`
}

// Empty reports whether nothing was retrieved
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}
