package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
	"github.com/custodia-labs/ragcore/internal/runtime"
)

// Ensure IngestOrchestrator implements IngestService
var _ driving.IngestService = (*IngestOrchestrator)(nil)

const (
	defaultEmbedBatchSize   = 16
	defaultEmbedConcurrency = 4
	defaultIngestLockTTL    = 5 * time.Minute

	ingestLockPrefix = "ingest:"
)

// IngestOrchestrator runs the ingestion pipeline: chunk the document,
// embed the chunks, index the vectors. Document status tracks the
// stage; a failure at any stage rolls the index back and marks the
// document failed with a reason.
type IngestOrchestrator struct {
	documentStore driven.DocumentStore
	index         driven.VectorIndex
	pipeline      driven.PostProcessorPipeline
	lock          driven.DistributedLock
	queue         driven.TaskQueue
	services      *runtime.Services
	logger        *slog.Logger

	embedBatchSize   int
	embedConcurrency int
	embedTimeout     time.Duration
	indexTimeout     time.Duration
	lockTTL          time.Duration
}

// IngestOrchestratorConfig holds dependencies for IngestOrchestrator.
type IngestOrchestratorConfig struct {
	DocumentStore driven.DocumentStore
	Index         driven.VectorIndex
	Pipeline      driven.PostProcessorPipeline
	Lock          driven.DistributedLock
	Queue         driven.TaskQueue
	Services      *runtime.Services
	Logger        *slog.Logger

	// EmbedBatchSize is the number of chunks per embedding call.
	EmbedBatchSize int
	// EmbedConcurrency bounds parallel embedding calls per document.
	EmbedConcurrency int
}

// NewIngestOrchestrator creates a new ingest orchestrator.
func NewIngestOrchestrator(cfg IngestOrchestratorConfig) *IngestOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	concurrency := cfg.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	return &IngestOrchestrator{
		documentStore:    cfg.DocumentStore,
		index:            cfg.Index,
		pipeline:         cfg.Pipeline,
		lock:             cfg.Lock,
		queue:            cfg.Queue,
		services:         cfg.Services,
		logger:           logger,
		embedBatchSize:   batchSize,
		embedConcurrency: concurrency,
		embedTimeout:     defaultEmbedTimeout,
		indexTimeout:     defaultIndexTimeout,
		lockTTL:          defaultIngestLockTTL,
	}
}

// SubmitDocument stores a new document as pending and enqueues it for
// ingestion.
func (o *IngestOrchestrator) SubmitDocument(ctx context.Context, text, filename string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document text is empty", domain.ErrEmptyInput)
	}
	if filename == "" {
		filename = "untitled.txt"
	}

	now := time.Now()
	doc := &domain.Document{
		ID:         domain.GenerateID(),
		Filename:   filename,
		Text:       text,
		Status:     domain.DocumentStatusPending,
		UploadedAt: now,
		UpdatedAt:  now,
	}
	if err := o.documentStore.Save(ctx, doc); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}

	if err := o.queue.Enqueue(ctx, domain.NewIngestTask(doc.ID)); err != nil {
		// Without a task the record would sit pending forever; remove
		// it so the caller can resubmit cleanly.
		if delErr := o.documentStore.Delete(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			o.logger.Error("failed to remove document after enqueue failure",
				"document_id", doc.ID, "error", delErr)
		}
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}

	o.logger.Info("document submitted", "document_id", doc.ID, "filename", filename, "bytes", len(text))
	return doc.ID, nil
}

// IngestDocument runs the full pipeline for one document. At most one
// ingestion runs per document at a time; a concurrent call returns
// domain.ErrIngestInProgress.
func (o *IngestOrchestrator) IngestDocument(ctx context.Context, documentID string) error {
	acquired, err := o.lock.Acquire(ctx, ingestLockPrefix+documentID, o.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrIngestInProgress)
	}
	defer func() {
		if err := o.lock.Release(context.WithoutCancel(ctx), ingestLockPrefix+documentID); err != nil {
			o.logger.Warn("failed to release ingest lock", "document_id", documentID, "error", err)
		}
	}()

	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.Status == domain.DocumentStatusReady {
		// Already ingested; nothing to do
		return nil
	}
	if doc.Status == domain.DocumentStatusFailed {
		// Resubmission: restart from pending
		if err := o.transition(ctx, doc, domain.DocumentStatusPending); err != nil {
			return err
		}
		doc.FailReason = ""
	}

	start := time.Now()
	o.logger.Info("starting ingestion", "document_id", doc.ID, "filename", doc.Filename)

	// Step 1: chunk
	if err := o.transition(ctx, doc, domain.DocumentStatusChunking); err != nil {
		return err
	}
	segments := o.pipeline.Process(doc.Text)
	if len(segments) == 0 {
		return o.failIngestion(ctx, doc, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyInput))
	}

	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, seg.Position),
			DocumentID: doc.ID,
			Position:   seg.Position,
			Content:    seg.Content,
			StartChar:  seg.StartOffset,
			EndChar:    seg.EndOffset,
		}
	}

	// Step 2: embed
	if err := o.transition(ctx, doc, domain.DocumentStatusEmbedding); err != nil {
		return err
	}
	embeddings, err := o.embedChunks(ctx, chunks)
	if err != nil {
		return o.failIngestion(ctx, doc, fmt.Errorf("embed chunks: %w", err))
	}

	// Step 3: index
	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{Chunk: chunks[i], Embedding: embeddings[i]}
	}
	indexCtx, cancel := context.WithTimeout(ctx, o.indexTimeout)
	err = o.index.Upsert(indexCtx, doc.ID, entries)
	cancel()
	if err != nil {
		return o.failIngestion(ctx, doc, fmt.Errorf("index chunks: %w", err))
	}

	doc.ChunkCount = len(chunks)
	if err := o.transition(ctx, doc, domain.DocumentStatusReady); err != nil {
		return err
	}

	o.logger.Info("ingestion complete",
		"document_id", doc.ID,
		"chunks", len(chunks),
		"took", time.Since(start))
	return nil
}

// embedChunks embeds all chunks in batches, bounded by
// embedConcurrency. Results keep chunk order. Any batch failure fails
// the whole document; completed batches are discarded by the caller's
// rollback.
func (o *IngestOrchestrator) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	embedder := o.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding backend configured", domain.ErrUpstreamUnavailable)
	}

	embeddings := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.embedConcurrency)

	for batchStart := 0; batchStart < len(chunks); batchStart += o.embedBatchSize {
		batchEnd := batchStart + o.embedBatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		start, end := batchStart, batchEnd

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Content
			}

			var vectors [][]float32
			err := withRetry(gctx, defaultRetryAttempts, defaultRetryBaseWait, func() error {
				embedCtx, cancel := context.WithTimeout(gctx, o.embedTimeout)
				defer cancel()
				var embedErr error
				vectors, embedErr = embedder.Embed(embedCtx, texts)
				return embedErr
			})
			if err != nil {
				return err
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedding backend returned %d vectors for %d texts", len(vectors), len(texts))
			}
			for i, v := range vectors {
				embeddings[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// failIngestion rolls back any indexed entries and marks the document
// failed. The returned error is the ingestion error, for the worker's
// retry accounting.
func (o *IngestOrchestrator) failIngestion(ctx context.Context, doc *domain.Document, cause error) error {
	// Rollback must run even when the ingestion context is cancelled.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.indexTimeout)
	defer cancel()

	if err := o.index.Delete(cleanupCtx, doc.ID); err != nil {
		o.logger.Error("rollback failed, index may hold partial entries",
			"document_id", doc.ID, "error", err)
	}

	doc.Status = domain.DocumentStatusFailed
	doc.FailReason = cause.Error()
	doc.ChunkCount = 0
	doc.UpdatedAt = time.Now()
	if err := o.documentStore.Save(cleanupCtx, doc); err != nil {
		o.logger.Error("failed to persist failure status", "document_id", doc.ID, "error", err)
	}

	o.logger.Warn("ingestion failed", "document_id", doc.ID, "reason", cause.Error())
	return cause
}

// transition moves the document to the next status and persists it.
func (o *IngestOrchestrator) transition(ctx context.Context, doc *domain.Document, next domain.DocumentStatus) error {
	if !doc.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot transition document %s from %s to %s",
			domain.ErrInvalidInput, doc.ID, doc.Status, next)
	}
	doc.Status = next
	doc.UpdatedAt = time.Now()
	if err := o.documentStore.Save(ctx, doc); err != nil {
		return fmt.Errorf("persist status %s: %w", next, err)
	}
	return nil
}
