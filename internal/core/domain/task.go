package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique identifier for documents and tasks.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIngestDocument runs the ingestion pipeline for one document
	TaskTypeIngestDocument TaskType = "ingest_document"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job processed by the worker pool
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// Payload contains task-specific data.
	// For ingest_document: {"document_id": "..."}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewIngestTask creates a task to ingest a specific document
func NewIngestTask(documentID string) *Task {
	now := time.Now()
	return &Task{
		ID:          GenerateID(),
		Type:        TaskTypeIngestDocument,
		Payload:     map[string]string{"document_id": documentID},
		Status:      TaskStatusPending,
		MaxAttempts: 3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DocumentID extracts the document_id from the payload
func (t *Task) DocumentID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["document_id"]
}
