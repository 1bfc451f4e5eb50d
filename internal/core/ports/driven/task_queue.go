package driven

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// TaskQueue is a reliable queue for background ingestion tasks
type TaskQueue interface {
	// Enqueue adds a task to the queue for processing
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up to
	// timeout seconds. Returns nil, nil if the timeout elapses with no
	// task available. The task is marked processing and is not handed to
	// other workers.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion; the task leaves the queue
	Ack(ctx context.Context, taskID string) error

	// Nack reports failure. The task is requeued with an incremented
	// attempt count, or moved to failed once MaxAttempts is exhausted.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID for status checking
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}
