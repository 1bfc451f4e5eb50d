// Package worker runs the background ingestion loop: dequeue a task,
// run the ingest pipeline, ack or nack.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/services"
)

// Worker processes ingestion tasks from the task queue. Concurrency
// bounds how many documents are ingested in parallel; per-document
// serialization is the orchestrator's lock, not the worker's concern.
type Worker struct {
	taskQueue    driven.TaskQueue
	orchestrator *services.IngestOrchestrator
	logger       *slog.Logger

	concurrency     int
	dequeueTimeout  int // seconds
	contentionDelay time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	TaskQueue    driven.TaskQueue
	Orchestrator *services.IngestOrchestrator
	Logger       *slog.Logger

	// Concurrency is the number of concurrent task processors
	Concurrency int
	// DequeueTimeout is how many seconds to wait for a task before
	// checking the stop signal again
	DequeueTimeout int
}

// New creates a new ingestion worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:       cfg.TaskQueue,
		orchestrator:    cfg.Orchestrator,
		logger:          logger,
		concurrency:     concurrency,
		dequeueTimeout:  dequeueTimeout,
		contentionDelay: defaultContentionDelay,
	}
}

// defaultContentionDelay is how long a worker waits before requeueing a
// task whose document lock is held by another ingestion. Without the
// wait, immediate requeues would exhaust the task's attempts while the
// legitimate ingestion is still running.
const defaultContentionDelay = 5 * time.Second

// Start begins the worker loop. It returns immediately; processing
// runs until Stop is called or the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker, waiting for in-flight tasks.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}
		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeIngestDocument:
		err = w.handleIngestDocument(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, domain.ErrIngestInProgress) {
			// Another ingestion holds the document lock. Wait before
			// requeueing so the retry happens after it had a chance to
			// finish, not milliseconds later.
			logger.Info("document locked by another ingestion, delaying retry", "duration", duration)
			w.pause(ctx, w.contentionDelay)
		} else {
			logger.Error("task failed", "duration", duration, "error", err)
		}
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// pause waits for d, returning early on stop or context cancellation.
func (w *Worker) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-timer.C:
	}
}

func (w *Worker) handleIngestDocument(ctx context.Context, task *domain.Task) error {
	documentID := task.DocumentID()
	if documentID == "" {
		return fmt.Errorf("document_id not found in task payload")
	}
	return w.orchestrator.IngestDocument(ctx, documentID)
}
