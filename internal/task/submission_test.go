package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/store"
)

// fakeEnqueuer records enqueued tasks and can simulate a full queue.
type fakeEnqueuer struct {
	err      error
	enqueued []Task
}

func (f *fakeEnqueuer) Enqueue(t Task) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, t)
	return nil
}

func newTestSubmission(sets *memStudySetStore, tasks *memTaskStore, queue Enqueuer) *StudySetSubmission {
	factory := NewStudySetTaskFactory(&fakeContent{}, &fakeEnricher{}, sets, quietLogger())
	sub := NewStudySetSubmission(nil, sets, tasks, factory, queue, quietLogger())
	// The fakes return themselves from WithTx, so the transaction collapses
	// to running the function directly.
	sub.runInTx = func(ctx context.Context, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return sub
}

func newSubmissionStudySet(t *testing.T) *domain.StudySet {
	t.Helper()
	set, err := domain.NewStudySet(domain.Metadata{
		Title:      "Cell Biology",
		Subject:    "Biology",
		Topic:      "Cells",
		Difficulty: domain.DifficultyMedium,
	}, "Cells are the basic unit of life and divide by mitosis.")
	require.NoError(t, err)
	return set
}

func TestStudySetSubmissionCreate(t *testing.T) {
	sets := newMemStudySetStore()
	tasks := newMemTaskStore()
	queue := &fakeEnqueuer{}
	sub := newTestSubmission(sets, tasks, queue)

	set := newSubmissionStudySet(t)
	require.NoError(t, sub.Create(context.Background(), set))

	// Set and task are persisted, and the persisted task is the one handed
	// to the worker pool.
	persisted, err := sets.GetByID(context.Background(), set.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StudySetStatusPending, persisted.Status)
	require.Len(t, tasks.saved, 1)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, tasks.saved[0].ID(), queue.enqueued[0].ID())
	assert.Equal(t, TaskTypeStudySetGeneration, queue.enqueued[0].Type())
}

func TestStudySetSubmissionStoreFailureSavesNothing(t *testing.T) {
	sets := newMemStudySetStore()
	sets.createErr = errors.New("connection reset")
	tasks := newMemTaskStore()
	queue := &fakeEnqueuer{}
	sub := newTestSubmission(sets, tasks, queue)

	err := sub.Create(context.Background(), newSubmissionStudySet(t))
	require.Error(t, err)

	// The transaction failed, so no task row exists and nothing reached
	// the queue.
	assert.Empty(t, tasks.saved)
	assert.Empty(t, queue.enqueued)
}

func TestStudySetSubmissionMarksBothFailedWhenQueueRejects(t *testing.T) {
	sets := newMemStudySetStore()
	tasks := newMemTaskStore()
	queue := &fakeEnqueuer{err: ErrQueueFull}
	sub := newTestSubmission(sets, tasks, queue)

	set := newSubmissionStudySet(t)
	err := sub.Create(context.Background(), set)
	assert.ErrorIs(t, err, ErrQueueFull)

	// The committed rows must not look like they are still waiting for work.
	persisted, getErr := sets.GetByID(context.Background(), set.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StudySetStatusFailed, persisted.Status)
	require.Len(t, tasks.saved, 1)
	h := tasks.history(tasks.saved[0].ID())
	require.NotEmpty(t, h)
	assert.Equal(t, TaskStatusFailed, h[len(h)-1])
}
