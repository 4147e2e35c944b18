package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type identifiers.
const (
	// TaskTypeStudySetGeneration assembles all study artifacts for a study
	// set and enriches its slide deck with images.
	TaskTypeStudySetGeneration = "study_set_generation"
)

// Task represents a unit of background work.
type Task interface {
	// ID returns the task's unique identifier.
	ID() uuid.UUID

	// Type returns the task type identifier.
	Type() string

	// Payload returns the serialized task data.
	Payload() []byte

	// Status returns the current task status.
	Status() TaskStatus

	// Execute runs the task logic.
	Execute(ctx context.Context) error
}

// Resolver rebinds a persisted task row to an executable Task. Rows loaded
// from the database carry only identity and payload; the resolver supplies
// the collaborators needed to actually run them.
type Resolver interface {
	// Resolve builds an executable task from a stored record. Returns an
	// error for unknown task types or malformed payloads.
	Resolve(id uuid.UUID, taskType string, payload []byte) (Task, error)
}

// TaskStore defines the interface for persisting tasks.
type TaskStore interface {
	// SaveTask persists a task.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task, recording errorMsg
	// for failed tasks.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status. If
	// olderThan is non-zero, only tasks that have sat in that state longer
	// than the given duration are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a TaskStore bound to the provided transaction. The
	// transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
