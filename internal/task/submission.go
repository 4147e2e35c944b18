package task

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/store"
)

// TaskBuilder builds the generation task for a newly created study set.
type TaskBuilder interface {
	NewTask(setID uuid.UUID) (Task, error)
}

// Enqueuer hands an already persisted task to the worker pool.
type Enqueuer interface {
	Enqueue(t Task) error
}

// StudySetSubmission persists a new study set together with its generation
// task and hands the task to the worker pool. The set row and the task row
// are written in one transaction: a crash between the two writes cannot
// leave a set that no task will ever process, or a task pointing at a
// missing set.
type StudySetSubmission struct {
	sets    store.StudySetStore
	tasks   TaskStore
	builder TaskBuilder
	queue   Enqueuer
	logger  *slog.Logger

	// runInTx is the transaction primitive, replaceable in tests.
	runInTx func(ctx context.Context, fn store.TxFn) error
}

// NewStudySetSubmission creates a StudySetSubmission over db and the given
// collaborators.
func NewStudySetSubmission(
	db *sql.DB,
	sets store.StudySetStore,
	tasks TaskStore,
	builder TaskBuilder,
	queue Enqueuer,
	logger *slog.Logger,
) *StudySetSubmission {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudySetSubmission{
		sets:    sets,
		tasks:   tasks,
		builder: builder,
		queue:   queue,
		logger:  logger.With(slog.String("component", "study_set_submission")),
		runInTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}
}

// Create atomically persists the study set and its generation task, then
// enqueues the task. When the queue rejects the task after the commit, both
// rows are marked failed so the set does not sit in pending forever.
func (s *StudySetSubmission) Create(ctx context.Context, set *domain.StudySet) error {
	t, err := s.builder.NewTask(set.ID)
	if err != nil {
		return fmt.Errorf("failed to build generation task: %w", err)
	}

	err = s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.sets.WithTx(tx).Create(ctx, set); err != nil {
			return fmt.Errorf("failed to create study set: %w", err)
		}
		if err := s.tasks.WithTx(tx).SaveTask(ctx, t); err != nil {
			return fmt.Errorf("failed to save generation task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.queue.Enqueue(t); err != nil {
		s.logger.Error("failed to enqueue generation task",
			"study_set_id", set.ID,
			"task_id", t.ID(),
			"error", err)
		if updateErr := s.tasks.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			s.logger.Error("failed to mark task failed after enqueue rejection",
				"task_id", t.ID(),
				"error", updateErr)
		}
		if updateErr := s.sets.UpdateStatus(ctx, set.ID, domain.StudySetStatusFailed); updateErr != nil {
			s.logger.Error("failed to mark study set failed after enqueue rejection",
				"study_set_id", set.ID,
				"error", updateErr)
		}
		return err
	}

	return nil
}
