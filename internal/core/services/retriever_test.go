package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

type retrieverFixture struct {
	embedder *mocks.MockEmbeddingService
	index    *mocks.MockVectorIndex
	store    *mocks.MockDocumentStore
	services *runtime.Services
	ret      *Retriever
}

func newRetrieverFixture(t *testing.T) *retrieverFixture {
	t.Helper()
	f := &retrieverFixture{
		embedder: mocks.NewMockEmbeddingService(),
		index:    mocks.NewMockVectorIndex(),
		store:    mocks.NewMockDocumentStore(),
		services: runtime.NewServices(domain.NewRuntimeConfig()),
	}
	f.services.SetEmbeddingService(f.embedder)
	f.ret = NewRetriever(f.index, f.store, f.services)
	return f
}

// seedEntry indexes one chunk whose embedding is derived from the
// query vector, making its cosine score predictable.
func (f *retrieverFixture) seedEntry(t *testing.T, docID string, position int, content string, embedding []float32) {
	t.Helper()
	err := f.index.Upsert(context.Background(), docID, []domain.IndexEntry{{
		Chunk: domain.Chunk{
			ID:         docID + "-chunk",
			DocumentID: docID,
			Position:   position,
			Content:    content,
		},
		Embedding: embedding,
	}})
	if err != nil {
		t.Fatalf("seed Upsert() error = %v", err)
	}
}

func negate(v []float32) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = -v[i]
	}
	return out
}

func TestRetriever_RanksAndEnriches(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	queryVec, err := f.embedder.EmbedQuery(ctx, "what is a channel?")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}

	f.seedEntry(t, "doc-good", 2, "channels synchronise goroutines", queryVec)
	f.seedEntry(t, "doc-bad", 0, "unrelated content", negate(queryVec))
	if err := f.store.Save(ctx, &domain.Document{
		ID: "doc-good", Filename: "go.txt", Status: domain.DocumentStatusReady, UploadedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	result, err := f.ret.Retrieve(ctx, "what is a channel?", domain.RetrieveOptions{TopK: 2})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}
	top := result.Chunks[0]
	if top.DocumentID != "doc-good" {
		t.Errorf("top chunk from %s, want doc-good", top.DocumentID)
	}
	if top.Filename != "go.txt" {
		t.Errorf("top chunk filename = %q, want go.txt", top.Filename)
	}
	if top.Position != 2 {
		t.Errorf("top chunk position = %d, want 2", top.Position)
	}
	if result.Chunks[1].Score > top.Score {
		t.Error("chunks not ranked by score descending")
	}
}

func TestRetriever_MinScoreFloor(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	queryVec, _ := f.embedder.EmbedQuery(ctx, "query")
	f.seedEntry(t, "doc-close", 0, "relevant", queryVec)
	f.seedEntry(t, "doc-far", 0, "irrelevant", negate(queryVec))

	result, err := f.ret.Retrieve(ctx, "query", domain.RetrieveOptions{TopK: 5, MinScore: 0.5})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 above the floor", len(result.Chunks))
	}
	if result.Chunks[0].DocumentID != "doc-close" {
		t.Errorf("surviving chunk from %s, want doc-close", result.Chunks[0].DocumentID)
	}
}

func TestRetriever_EmptyResultIsNotAnError(t *testing.T) {
	f := newRetrieverFixture(t)

	result, err := f.ret.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve() on empty index error = %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected empty result, got %d chunks", len(result.Chunks))
	}
}

func TestRetriever_DedupeByDocument(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	queryVec, _ := f.embedder.EmbedQuery(ctx, "query")
	err := f.index.Upsert(ctx, "doc-1", []domain.IndexEntry{
		{Chunk: domain.Chunk{DocumentID: "doc-1", Position: 0, Content: "first"}, Embedding: queryVec},
		{Chunk: domain.Chunk{DocumentID: "doc-1", Position: 1, Content: "second"}, Embedding: queryVec},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	f.seedEntry(t, "doc-2", 0, "other document", queryVec)

	result, err := f.ret.Retrieve(ctx, "query", domain.RetrieveOptions{TopK: 5, DedupeByDocument: true})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks after dedupe, want 2", len(result.Chunks))
	}
	seen := map[string]bool{}
	for _, c := range result.Chunks {
		if seen[c.DocumentID] {
			t.Errorf("document %s appears twice after dedupe", c.DocumentID)
		}
		seen[c.DocumentID] = true
	}
}

func TestRetriever_EmptyQueryRejected(t *testing.T) {
	f := newRetrieverFixture(t)
	_, err := f.ret.Retrieve(context.Background(), "   ", domain.RetrieveOptions{})
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("Retrieve() error = %v, want ErrEmptyInput", err)
	}
}

func TestRetriever_NoEmbeddingBackend(t *testing.T) {
	f := newRetrieverFixture(t)
	f.services.SetEmbeddingService(nil)

	_, err := f.ret.Retrieve(context.Background(), "query", domain.RetrieveOptions{})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("Retrieve() error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestRetriever_RetriesTransientEmbedFailure(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	queryVec, _ := f.embedder.EmbedQuery(ctx, "query")
	f.seedEntry(t, "doc-1", 0, "content", queryVec)

	callsBefore := f.embedder.Calls()
	f.embedder.FailNext(1, domain.ErrUpstreamTimeout)
	f.ret.embedTimeout = time.Second

	result, err := f.ret.Retrieve(ctx, "query", domain.RetrieveOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Retrieve() error after transient failure = %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Errorf("got %d chunks, want 1", len(result.Chunks))
	}
	if got := f.embedder.Calls() - callsBefore; got != 2 {
		t.Errorf("embedder calls = %d, want 2 (one failure, one retry)", got)
	}
}
