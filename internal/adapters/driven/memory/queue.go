package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*TaskQueue)(nil)

const defaultQueueCapacity = 1024

// TaskQueue is a channel-backed implementation of driven.TaskQueue.
// Dequeued tasks stay tracked until Ack or Nack; a Nack below the
// attempt limit requeues the task.
type TaskQueue struct {
	mu     sync.Mutex
	ch     chan string
	tasks  map[string]*domain.Task
	closed bool
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		ch:    make(chan string, defaultQueueCapacity),
		tasks: make(map[string]*domain.Task),
	}
}

// Enqueue adds a task to the tail of the queue.
func (q *TaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidInput)
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("task queue is closed")
	}
	t := *task
	t.Status = domain.TaskStatusPending
	t.UpdatedAt = time.Now()
	q.tasks[t.ID] = &t
	q.mu.Unlock()

	select {
	case q.ch <- t.ID:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// DequeueWithTimeout pops the next task, waiting up to timeoutSeconds.
// Returns (nil, nil) when the wait expires with nothing to process.
func (q *TaskQueue) DequeueWithTimeout(ctx context.Context, timeoutSeconds int) (*domain.Task, error) {
	timer := time.NewTimer(time.Duration(timeoutSeconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case id, ok := <-q.ch:
		if !ok {
			return nil, fmt.Errorf("task queue is closed")
		}
		q.mu.Lock()
		defer q.mu.Unlock()
		t, exists := q.tasks[id]
		if !exists {
			// Acked or dropped while queued
			return nil, nil
		}
		t.Status = domain.TaskStatusProcessing
		t.Attempts++
		t.UpdatedAt = time.Now()
		out := *t
		return &out, nil
	}
}

// Ack marks a task completed and forgets it.
func (q *TaskQueue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, taskID)
	return nil
}

// Nack records a failure. Tasks under their attempt limit are requeued;
// exhausted tasks are marked failed and kept for inspection via GetTask.
func (q *TaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	t.Error = reason
	t.UpdatedAt = time.Now()
	if t.Attempts >= t.MaxAttempts {
		t.Status = domain.TaskStatusFailed
		return nil
	}
	t.Status = domain.TaskStatusPending
	select {
	case q.ch <- t.ID:
		return nil
	default:
		t.Status = domain.TaskStatusFailed
		return fmt.Errorf("task queue is full")
	}
}

// GetTask returns the tracked state of a task.
func (q *TaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	out := *t
	return &out, nil
}

// Ping always succeeds for the in-process queue.
func (q *TaskQueue) Ping(ctx context.Context) error {
	return nil
}

// Close stops the queue. Pending tasks are discarded.
func (q *TaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
