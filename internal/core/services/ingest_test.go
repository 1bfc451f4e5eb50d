package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/memory"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragcore/internal/postprocessors"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

const ingestTestText = "Go is a statically typed language. " +
	"It compiles quickly to native code. " +
	"Goroutines make concurrency cheap. " +
	"Channels let goroutines exchange values safely. " +
	"The standard library covers networking and encoding."

type ingestFixture struct {
	store    *mocks.MockDocumentStore
	index    *mocks.MockVectorIndex
	embedder *mocks.MockEmbeddingService
	lock     *memory.Lock
	queue    *memory.TaskQueue
	orch     *IngestOrchestrator
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	pipeline, err := postprocessors.BuildPipeline(postprocessors.ChunkConfig{
		ChunkSize:      80,
		Overlap:        20,
		MinChunkLength: 10,
	})
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}

	f := &ingestFixture{
		store:    mocks.NewMockDocumentStore(),
		index:    mocks.NewMockVectorIndex(),
		embedder: mocks.NewMockEmbeddingService(),
		lock:     memory.NewLock(),
		queue:    memory.NewTaskQueue(),
	}
	services := runtime.NewServices(domain.NewRuntimeConfig())
	services.SetEmbeddingService(f.embedder)

	f.orch = NewIngestOrchestrator(IngestOrchestratorConfig{
		DocumentStore:  f.store,
		Index:          f.index,
		Pipeline:       pipeline,
		Lock:           f.lock,
		Queue:          f.queue,
		Services:       services,
		EmbedBatchSize: 2,
	})
	f.orch.embedTimeout = time.Second
	return f
}

func TestIngest_SubmitThenIngestReachesReady(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	id, err := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	doc, err := f.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() after submit error = %v", err)
	}
	if doc.Status != domain.DocumentStatusPending {
		t.Errorf("status after submit = %s, want pending", doc.Status)
	}

	task, err := f.queue.DequeueWithTimeout(ctx, 1)
	if err != nil || task == nil {
		t.Fatalf("DequeueWithTimeout() = %v, %v; want queued ingest task", task, err)
	}
	if task.DocumentID() != id {
		t.Errorf("task document = %s, want %s", task.DocumentID(), id)
	}

	if err := f.orch.IngestDocument(ctx, id); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	doc, _ = f.store.Get(ctx, id)
	if doc.Status != domain.DocumentStatusReady {
		t.Fatalf("status = %s, want ready (fail reason: %s)", doc.Status, doc.FailReason)
	}
	if doc.ChunkCount == 0 {
		t.Error("ChunkCount = 0 after ingestion")
	}

	count, err := f.index.Count(ctx, id)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != doc.ChunkCount {
		t.Errorf("index holds %d entries, document records %d chunks", count, doc.ChunkCount)
	}
}

func TestIngest_EmptyDocumentRejected(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.orch.SubmitDocument(context.Background(), "   \n\t  ", "blank.txt")
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("SubmitDocument() error = %v, want ErrEmptyInput", err)
	}
}

func TestIngest_EnqueueFailureLeavesNoStrandedDocument(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.queue.Close()

	_, err := f.orch.SubmitDocument(ctx, ingestTestText, "stranded.txt")
	if err == nil {
		t.Fatal("SubmitDocument() succeeded with a dead queue")
	}

	docs, listErr := f.store.List(ctx)
	if listErr != nil {
		t.Fatalf("List() error = %v", listErr)
	}
	if len(docs) != 0 {
		t.Fatalf("store holds %d documents after a failed submission, want 0", len(docs))
	}
}

func TestIngest_EmbeddingFailureMarksFailedAndRollsBack(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	id, err := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	// Enough failures to exhaust every batch's retry budget.
	f.embedder.FailNext(100, domain.ErrUpstreamTimeout)

	err = f.orch.IngestDocument(ctx, id)
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("IngestDocument() error = %v, want ErrUpstreamTimeout", err)
	}

	doc, err := f.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("document disappeared after failed ingestion: %v", err)
	}
	if doc.Status != domain.DocumentStatusFailed {
		t.Errorf("status = %s, want failed", doc.Status)
	}
	if !strings.Contains(doc.FailReason, "embed") {
		t.Errorf("FailReason = %q, want an embedding failure reason", doc.FailReason)
	}

	count, _ := f.index.Count(ctx, id)
	if count != 0 {
		t.Errorf("index holds %d entries after rollback, want 0", count)
	}
}

func TestIngest_FailedDocumentCanBeResubmitted(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	id, _ := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")
	f.embedder.FailNext(100, domain.ErrUpstreamUnavailable)
	if err := f.orch.IngestDocument(ctx, id); err == nil {
		t.Fatal("IngestDocument() succeeded despite failing embedder")
	}

	// Backend recovered: the failed document restarts from pending.
	f.embedder.FailNext(0, nil)
	if err := f.orch.IngestDocument(ctx, id); err != nil {
		t.Fatalf("IngestDocument() retry error = %v", err)
	}

	doc, _ := f.store.Get(ctx, id)
	if doc.Status != domain.DocumentStatusReady {
		t.Errorf("status after retry = %s, want ready", doc.Status)
	}
	if doc.FailReason != "" {
		t.Errorf("FailReason = %q after successful retry, want empty", doc.FailReason)
	}
}

func TestIngest_ConcurrentIngestionRejected(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	id, _ := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")

	// Simulate another worker holding the document's lock.
	if ok, _ := f.lock.Acquire(ctx, ingestLockPrefix+id, time.Minute); !ok {
		t.Fatal("failed to pre-acquire lock")
	}

	err := f.orch.IngestDocument(ctx, id)
	if !errors.Is(err, domain.ErrIngestInProgress) {
		t.Errorf("IngestDocument() error = %v, want ErrIngestInProgress", err)
	}
}

func TestIngest_ReadyDocumentIsNotReingested(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	id, _ := f.orch.SubmitDocument(ctx, ingestTestText, "go.txt")
	if err := f.orch.IngestDocument(ctx, id); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	callsBefore := f.embedder.Calls()
	if err := f.orch.IngestDocument(ctx, id); err != nil {
		t.Fatalf("second IngestDocument() error = %v", err)
	}
	if f.embedder.Calls() != callsBefore {
		t.Error("ready document was embedded again")
	}
}

func TestIngest_UnknownDocument(t *testing.T) {
	f := newIngestFixture(t)
	err := f.orch.IngestDocument(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("IngestDocument() error = %v, want ErrNotFound", err)
	}
}
