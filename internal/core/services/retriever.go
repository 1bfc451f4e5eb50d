package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

const (
	defaultEmbedTimeout = 5 * time.Second
	defaultIndexTimeout = 5 * time.Second

	// dedupeOverfetch widens the index search when deduplication may
	// discard chunks, so top_k survivors remain likely.
	dedupeOverfetch = 4
)

// Retriever turns a query into ranked context chunks: embed the query,
// search the index, apply the similarity floor and optional
// per-document deduplication, then enrich results with document
// metadata.
type Retriever struct {
	index    driven.VectorIndex
	store    driven.DocumentStore
	services *runtime.Services

	embedTimeout time.Duration
	indexTimeout time.Duration
}

// NewRetriever creates a retriever with default timeouts.
func NewRetriever(index driven.VectorIndex, store driven.DocumentStore, services *runtime.Services) *Retriever {
	return &Retriever{
		index:        index,
		store:        store,
		services:     services,
		embedTimeout: defaultEmbedTimeout,
		indexTimeout: defaultIndexTimeout,
	}
}

// Retrieve runs the retrieval pipeline. An empty result is not an
// error; callers decide how to handle missing context.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrEmptyInput)
	}
	opts.Normalize()

	embedder := r.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding backend configured", domain.ErrUpstreamUnavailable)
	}

	var vector []float32
	err := withRetry(ctx, defaultRetryAttempts, defaultRetryBaseWait, func() error {
		embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
		var embedErr error
		vector, embedErr = embedder.EmbedQuery(embedCtx, query)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	topK := opts.TopK
	if opts.DedupeByDocument {
		topK *= dedupeOverfetch
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.indexTimeout)
	defer cancel()
	candidates, err := r.index.Search(searchCtx, vector, topK, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := applyFloor(candidates, opts.MinScore)
	if opts.DedupeByDocument {
		chunks = dedupeByDocument(chunks)
	}
	if len(chunks) > opts.TopK {
		chunks = chunks[:opts.TopK]
	}
	r.enrichFilenames(ctx, chunks)

	return &domain.RetrievalResult{
		Query:  query,
		Chunks: chunks,
		Took:   time.Since(start),
	}, nil
}

// applyFloor drops chunks scoring below minScore. The input is ranked
// descending, so the first miss ends the scan.
func applyFloor(chunks []domain.RetrievedChunk, minScore float64) []domain.RetrievedChunk {
	if minScore <= 0 {
		return chunks
	}
	for i, c := range chunks {
		if c.Score < minScore {
			return chunks[:i]
		}
	}
	return chunks
}

// dedupeByDocument keeps only the best-scored chunk per document,
// preserving rank order.
func dedupeByDocument(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	seen := make(map[string]bool, len(chunks))
	out := chunks[:0:0]
	for _, c := range chunks {
		if seen[c.DocumentID] {
			continue
		}
		seen[c.DocumentID] = true
		out = append(out, c)
	}
	return out
}

// enrichFilenames resolves filenames for the source documents. Lookup
// failures leave the filename empty rather than failing retrieval.
func (r *Retriever) enrichFilenames(ctx context.Context, chunks []domain.RetrievedChunk) {
	names := make(map[string]string)
	for i := range chunks {
		id := chunks[i].DocumentID
		name, ok := names[id]
		if !ok {
			if doc, err := r.store.Get(ctx, id); err == nil {
				name = doc.Filename
			}
			names[id] = name
		}
		chunks[i].Filename = name
	}
}
