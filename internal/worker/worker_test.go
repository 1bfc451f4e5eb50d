package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/adapters/driven/memory"
	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragcore/internal/core/services"
	"github.com/custodia-labs/ragcore/internal/postprocessors"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

const workerTestText = "The worker picks up queued documents. " +
	"Each one is chunked, embedded and indexed. " +
	"Failures are retried a bounded number of times. " +
	"Exhausted tasks are parked as failed for inspection."

type workerFixture struct {
	store    *mocks.MockDocumentStore
	index    *mocks.MockVectorIndex
	embedder *mocks.MockEmbeddingService
	queue    *memory.TaskQueue
	lock     *memory.Lock
	orch     *services.IngestOrchestrator
	worker   *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	pipeline, err := postprocessors.BuildPipeline(postprocessors.ChunkConfig{
		ChunkSize:      80,
		Overlap:        20,
		MinChunkLength: 10,
	})
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}

	f := &workerFixture{
		store:    mocks.NewMockDocumentStore(),
		index:    mocks.NewMockVectorIndex(),
		embedder: mocks.NewMockEmbeddingService(),
		queue:    memory.NewTaskQueue(),
		lock:     memory.NewLock(),
	}
	reg := runtime.NewServices(domain.NewRuntimeConfig())
	reg.SetEmbeddingService(f.embedder)

	f.orch = services.NewIngestOrchestrator(services.IngestOrchestratorConfig{
		DocumentStore: f.store,
		Index:         f.index,
		Pipeline:      pipeline,
		Lock:          f.lock,
		Queue:         f.queue,
		Services:      reg,
	})
	f.worker = New(Config{
		TaskQueue:      f.queue,
		Orchestrator:   f.orch,
		Concurrency:    2,
		DequeueTimeout: 1,
	})
	t.Cleanup(func() { f.queue.Close() })
	return f
}

// waitForStatus polls until the document reaches the wanted status.
func (f *workerFixture) waitForStatus(t *testing.T, id string, want domain.DocumentStatus) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := f.store.Get(context.Background(), id)
		if err == nil && doc.Status == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	doc, _ := f.store.Get(context.Background(), id)
	t.Fatalf("document %s never reached %s, last seen: %+v", id, want, doc)
}

func TestWorker_ProcessesSubmittedDocuments(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := f.orch.SubmitDocument(ctx, workerTestText, fmt.Sprintf("doc-%d.txt", i))
		if err != nil {
			t.Fatalf("SubmitDocument() error = %v", err)
		}
		ids = append(ids, id)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	for _, id := range ids {
		f.waitForStatus(t, id, domain.DocumentStatusReady)
	}

	for _, id := range ids {
		count, _ := f.index.Count(ctx, id)
		doc, _ := f.store.Get(ctx, id)
		if count == 0 || count != doc.ChunkCount {
			t.Errorf("document %s: index entries %d, chunk count %d", id, count, doc.ChunkCount)
		}
	}
}

func TestWorker_ExhaustedTaskLeavesDocumentFailed(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every embed call fails: each task attempt nacks until exhausted.
	f.embedder.FailNext(1_000_000, domain.ErrUpstreamUnavailable)

	id, err := f.orch.SubmitDocument(ctx, workerTestText, "doomed.txt")
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	f.waitForStatus(t, id, domain.DocumentStatusFailed)

	doc, _ := f.store.Get(ctx, id)
	if doc.FailReason == "" {
		t.Error("failed document has no fail reason")
	}
	count, _ := f.index.Count(ctx, id)
	if count != 0 {
		t.Errorf("index holds %d entries for a failed document", count)
	}
}

func TestWorker_LockContentionDoesNotExhaustAttempts(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := f.orch.SubmitDocument(ctx, workerTestText, "contended.txt")
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}

	// Hold the document lock as a concurrent ingestion would.
	acquired, err := f.lock.Acquire(ctx, "ingest:"+id, time.Minute)
	if err != nil || !acquired {
		t.Fatalf("Acquire() = %v, %v", acquired, err)
	}

	f.worker.contentionDelay = 100 * time.Millisecond
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	// The first attempt contends and is delayed, not burned. Release
	// the lock while that delay is still pending; a later attempt must
	// then complete the ingestion instead of finding a dead task.
	time.Sleep(50 * time.Millisecond)
	if err := f.lock.Release(ctx, "ingest:"+id); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	f.waitForStatus(t, id, domain.DocumentStatusReady)

	doc, _ := f.store.Get(ctx, id)
	if doc.Status != domain.DocumentStatusReady {
		t.Fatalf("document status = %s, want ready", doc.Status)
	}
}

func TestWorker_StopWaitsForInFlightWork(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, _ := f.orch.SubmitDocument(ctx, workerTestText, "doc.txt")
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	f.waitForStatus(t, id, domain.DocumentStatusReady)
	f.worker.Stop()

	// Stop again is a no-op.
	f.worker.Stop()
}
