// Package redis implements the task queue on Redis Streams. Consumer
// groups track delivery, so a worker crash leaves the task pending
// instead of losing it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

const (
	taskStream    = "ragcore:tasks"
	taskGroup     = "ragcore:workers"
	taskKeyPrefix = "ragcore:task:"

	consumerPrefix = "worker-"

	// Task records expire eventually so abandoned IDs do not pile up
	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using Redis Streams.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed task queue. The consumerName
// should be unique per worker instance; empty generates one.
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	err := q.client.XGroupCreateMkStream(context.Background(), taskStream, taskGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

// Enqueue adds a task to the stream and stores its record.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidInput)
	}

	task.Status = domain.TaskStatusPending
	task.UpdatedAt = time.Now()
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{
			"task_id": task.ID,
			"type":    string(task.Type),
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout reads the next task, waiting up to timeoutSeconds.
// Returns (nil, nil) when the wait expires with nothing to process.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeoutSeconds int) (*domain.Task, error) {
	blockDuration := time.Duration(timeoutSeconds) * time.Second

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    blockDuration,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		// Malformed message; drop it
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		return nil, nil
	}

	task, err := q.getTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Record expired; nothing to process
			q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
			return nil, nil
		}
		return nil, err
	}

	task.Status = domain.TaskStatusProcessing
	task.Attempts++
	task.UpdatedAt = time.Now()

	taskData, _ := json.Marshal(task)
	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, taskTTL)
	pipe.Set(ctx, taskKeyPrefix+task.ID+":msg", msg.ID, taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("mark task processing: %w", err)
	}
	return task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, taskKeyPrefix+taskID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get message id: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}

	if task, err := q.getTask(ctx, taskID); err == nil {
		task.Status = domain.TaskStatusCompleted
		task.UpdatedAt = time.Now()
		taskData, _ := json.Marshal(task)
		pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
	}
	pipe.Del(ctx, taskKeyPrefix+taskID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack records a failure. Tasks under their attempt limit are put back
// on the stream; exhausted tasks are marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	msgID, _ := q.client.Get(ctx, taskKeyPrefix+taskID+":msg").Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, taskStream, taskGroup, msgID)
		pipe.XDel(ctx, taskStream, msgID)
	}

	task.Error = reason
	task.UpdatedAt = time.Now()
	if task.Attempts < task.MaxAttempts {
		task.Status = domain.TaskStatusPending
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: taskStream,
			Values: map[string]interface{}{
				"task_id": task.ID,
				"type":    string(task.Type),
			},
		})
	} else {
		task.Status = domain.TaskStatusFailed
	}
	taskData, _ := json.Marshal(task)
	pipe.Set(ctx, taskKeyPrefix+taskID, taskData, taskTTL)
	pipe.Del(ctx, taskKeyPrefix+taskID+":msg")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// GetTask retrieves a task record by ID.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return q.getTask(ctx, taskID)
}

func (q *Queue) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// Ping checks if the Redis backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
