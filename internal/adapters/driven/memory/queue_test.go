package memory

import (
	"context"
	"testing"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestTaskQueue_EnqueueDequeue(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()
	ctx := context.Background()

	task := domain.NewIngestTask("doc-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("DequeueWithTimeout() error = %v", err)
	}
	if got == nil {
		t.Fatal("DequeueWithTimeout() returned nil task")
	}
	if got.ID != task.ID {
		t.Errorf("task ID = %s, want %s", got.ID, task.ID)
	}
	if got.DocumentID() != "doc-1" {
		t.Errorf("DocumentID() = %s, want doc-1", got.DocumentID())
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
}

func TestTaskQueue_DequeueTimeoutReturnsNil(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	got, err := q.DequeueWithTimeout(context.Background(), 0)
	if err != nil {
		t.Fatalf("DequeueWithTimeout() error = %v", err)
	}
	if got != nil {
		t.Errorf("DequeueWithTimeout() = %+v, want nil on empty queue", got)
	}
}

func TestTaskQueue_NackRequeuesUntilExhausted(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()
	ctx := context.Background()

	task := domain.NewIngestTask("doc-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	for attempt := 1; attempt <= task.MaxAttempts; attempt++ {
		got, err := q.DequeueWithTimeout(ctx, 1)
		if err != nil || got == nil {
			t.Fatalf("attempt %d: DequeueWithTimeout() = %v, %v", attempt, got, err)
		}
		if got.Attempts != attempt {
			t.Errorf("attempt %d: Attempts = %d", attempt, got.Attempts)
		}
		if err := q.Nack(ctx, got.ID, "embedding upstream unavailable"); err != nil {
			t.Fatalf("Nack() error = %v", err)
		}
	}

	// Attempt limit reached: task must not come back.
	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("DequeueWithTimeout() error = %v", err)
	}
	if got != nil {
		t.Errorf("exhausted task was requeued: %+v", got)
	}

	final, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if final.Status != domain.TaskStatusFailed {
		t.Errorf("final status = %s, want failed", final.Status)
	}
	if final.Error != "embedding upstream unavailable" {
		t.Errorf("final error = %q", final.Error)
	}
}

func TestTaskQueue_AckForgetsTask(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()
	ctx := context.Background()

	task := domain.NewIngestTask("doc-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("DequeueWithTimeout() = %v, %v", got, err)
	}
	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
	if _, err := q.GetTask(ctx, got.ID); err == nil {
		t.Error("GetTask() succeeded after Ack, want ErrNotFound")
	}
}

func TestTaskQueue_DequeueHonorsContext(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.DequeueWithTimeout(ctx, 30)
	if err == nil {
		t.Error("DequeueWithTimeout() did not return on cancelled context")
	}
}
