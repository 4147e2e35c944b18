package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/service"
	"github.com/studykit/api/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeContent returns canned artifacts, with optional per-operation errors.
type fakeContent struct {
	notesErr   error
	quizErr    error
	deckErr    error
	scriptErr  error
	diagramErr error

	metadataCalls int
}

func (f *fakeContent) SuggestMetadata(ctx context.Context, text string) *domain.Metadata {
	f.metadataCalls++
	return &domain.Metadata{
		Title:      "Suggested Title",
		Subject:    "Biology",
		Topic:      "Cells",
		Difficulty: domain.DifficultyMedium,
	}
}

func (f *fakeContent) Summarize(ctx context.Context, text string) string {
	return "a summary"
}

func (f *fakeContent) GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error) {
	if f.notesErr != nil {
		return "", f.notesErr
	}
	return "# Notes", nil
}

func (f *fakeContent) GenerateQuiz(
	ctx context.Context,
	text string,
	questionCount int,
	difficulty domain.Difficulty,
) (*domain.Quiz, error) {
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	return &domain.Quiz{Questions: []domain.Question{{
		Question: "What is a cell?",
		Options:  []string{"a", "b", "c", "d"},
		Answer:   0,
	}}}, nil
}

func (f *fakeContent) GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error) {
	if f.deckErr != nil {
		return nil, f.deckErr
	}
	return &domain.SlideDeck{
		Title:  "Deck",
		Slides: []domain.Slide{{Heading: "One", Bullets: []string{"b"}, ImagePrompt: "cells"}},
	}, nil
}

func (f *fakeContent) GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	return &domain.VideoScript{
		Title:  "Script",
		Scenes: []domain.Scene{{Narration: "Cells divide.", ImagePrompt: "mitosis"}},
	}, nil
}

func (f *fakeContent) GenerateDiagram(ctx context.Context, text string) (string, error) {
	if f.diagramErr != nil {
		return "", f.diagramErr
	}
	return "graph TD\n  A-->B", nil
}

// fakeEnricher stamps a fixed reference onto every item.
type fakeEnricher struct {
	err error
}

func (f *fakeEnricher) EnrichSlideDeck(
	ctx context.Context,
	deck *domain.SlideDeck,
	sink service.ProgressSink,
) (*domain.SlideDeck, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &domain.SlideDeck{Title: deck.Title, Slides: make([]domain.Slide, len(deck.Slides))}
	for i, s := range deck.Slides {
		s.ImageRef = "data:image/png;base64,AAAA"
		out.Slides[i] = s
	}
	return out, nil
}

func (f *fakeEnricher) EnrichVideoScript(
	ctx context.Context,
	script *domain.VideoScript,
	sink service.ProgressSink,
) (*domain.VideoScript, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &domain.VideoScript{Title: script.Title, Scenes: make([]domain.Scene, len(script.Scenes))}
	for i, s := range script.Scenes {
		s.ImageRef = "data:image/png;base64,AAAA"
		out.Scenes[i] = s
	}
	return out, nil
}

// memStudySetStore is an in-memory store.StudySetStore.
type memStudySetStore struct {
	mu   sync.Mutex
	sets map[uuid.UUID]*domain.StudySet

	createErr error
	getErr    error
}

func newMemStudySetStore() *memStudySetStore {
	return &memStudySetStore{sets: make(map[uuid.UUID]*domain.StudySet)}
}

func (m *memStudySetStore) Create(ctx context.Context, set *domain.StudySet) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *set
	m.sets[set.ID] = &copied
	return nil
}

func (m *memStudySetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil, store.ErrStudySetNotFound
	}
	copied := *set
	return &copied, nil
}

func (m *memStudySetStore) Update(ctx context.Context, set *domain.StudySet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[set.ID]; !ok {
		return store.ErrStudySetNotFound
	}
	copied := *set
	m.sets[set.ID] = &copied
	return nil
}

func (m *memStudySetStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudySetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return store.ErrStudySetNotFound
	}
	set.Status = status
	return nil
}

func (m *memStudySetStore) List(ctx context.Context, limit, offset int) ([]*domain.StudySet, error) {
	return nil, nil
}

func (m *memStudySetStore) WithTx(tx *sql.Tx) store.StudySetStore {
	return m
}

func (m *memStudySetStore) get(t *testing.T, id uuid.UUID) *domain.StudySet {
	t.Helper()
	set, err := m.GetByID(context.Background(), id)
	require.NoError(t, err)
	return set
}

func seedStudySet(t *testing.T, sets *memStudySetStore, title string) *domain.StudySet {
	t.Helper()
	set, err := domain.NewStudySet(domain.Metadata{
		Title:      title,
		Subject:    "Biology",
		Topic:      "Cells",
		Difficulty: domain.DifficultyMedium,
	}, "Cells are the basic unit of life and divide by mitosis.")
	require.NoError(t, err)
	require.NoError(t, sets.Create(context.Background(), set))
	return set
}

func TestStudySetGenerationTaskHappyPath(t *testing.T) {
	sets := newMemStudySetStore()
	seeded := seedStudySet(t, sets, "Cell Biology")

	tk, err := NewStudySetGenerationTask(seeded.ID, &fakeContent{}, &fakeEnricher{}, sets, quietLogger())
	require.NoError(t, err)

	require.NoError(t, tk.Execute(context.Background()))

	got := sets.get(t, seeded.ID)
	assert.Equal(t, domain.StudySetStatusCompleted, got.Status)
	assert.Equal(t, "a summary", got.Artifacts.Summary)
	assert.Equal(t, "# Notes", got.Artifacts.Notes)
	require.NotNil(t, got.Artifacts.Quiz)
	require.NotNil(t, got.Artifacts.Deck)
	assert.True(t, got.Artifacts.Deck.Resolved(), "deck comes back enriched")
	require.NotNil(t, got.Artifacts.Script)
	assert.True(t, got.Artifacts.Script.Resolved(), "script comes back enriched")
	assert.NotEmpty(t, got.Artifacts.Diagram)
}

func TestStudySetGenerationTaskPartialFailure(t *testing.T) {
	sets := newMemStudySetStore()
	seeded := seedStudySet(t, sets, "Cell Biology")

	content := &fakeContent{
		quizErr:    errors.New("code = UNAVAILABLE"),
		diagramErr: errors.New("invalid response"),
	}
	tk, err := NewStudySetGenerationTask(seeded.ID, content, &fakeEnricher{}, sets, quietLogger())
	require.NoError(t, err)

	require.NoError(t, tk.Execute(context.Background()), "artifact failures never fail the task")

	got := sets.get(t, seeded.ID)
	assert.Equal(t, domain.StudySetStatusCompletedWithErrors, got.Status)
	assert.Nil(t, got.Artifacts.Quiz)
	assert.Empty(t, got.Artifacts.Diagram)
	assert.Equal(t, "a summary", got.Artifacts.Summary, "display artifacts are always present")
	assert.NotNil(t, got.Artifacts.Deck)
}

func TestStudySetGenerationTaskKeepsUserMetadata(t *testing.T) {
	sets := newMemStudySetStore()
	seeded := seedStudySet(t, sets, "My Own Title")

	content := &fakeContent{}
	tk, err := NewStudySetGenerationTask(seeded.ID, content, &fakeEnricher{}, sets, quietLogger())
	require.NoError(t, err)

	require.NoError(t, tk.Execute(context.Background()))

	got := sets.get(t, seeded.ID)
	assert.Equal(t, "My Own Title", got.Metadata.Title)
	assert.Zero(t, content.metadataCalls, "suggestion is skipped when the user supplied metadata")
}

func TestStudySetGenerationTaskMissingSet(t *testing.T) {
	sets := newMemStudySetStore()

	tk, err := NewStudySetGenerationTask(uuid.New(), &fakeContent{}, &fakeEnricher{}, sets, quietLogger())
	require.NoError(t, err)

	err = tk.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStudySetNotFound)
}

func TestStudySetGenerationTaskKeepsUnresolvedDeckOnEnrichmentError(t *testing.T) {
	sets := newMemStudySetStore()
	seeded := seedStudySet(t, sets, "Cell Biology")

	tk, err := NewStudySetGenerationTask(
		seeded.ID,
		&fakeContent{},
		&fakeEnricher{err: errors.New("enrichment rejected the deck")},
		sets,
		quietLogger(),
	)
	require.NoError(t, err)

	require.NoError(t, tk.Execute(context.Background()))

	got := sets.get(t, seeded.ID)
	assert.Equal(t, domain.StudySetStatusCompletedWithErrors, got.Status)
	require.NotNil(t, got.Artifacts.Deck)
	assert.False(t, got.Artifacts.Deck.Resolved())
}

func TestNewStudySetGenerationTaskValidation(t *testing.T) {
	sets := newMemStudySetStore()

	_, err := NewStudySetGenerationTask(uuid.Nil, &fakeContent{}, &fakeEnricher{}, sets, quietLogger())
	assert.Error(t, err)

	_, err = NewStudySetGenerationTask(uuid.New(), nil, &fakeEnricher{}, sets, quietLogger())
	assert.Error(t, err)

	_, err = NewStudySetGenerationTask(uuid.New(), &fakeContent{}, nil, sets, quietLogger())
	assert.Error(t, err)

	_, err = NewStudySetGenerationTask(uuid.New(), &fakeContent{}, &fakeEnricher{}, nil, quietLogger())
	assert.Error(t, err)
}

func TestStudySetTaskFactory(t *testing.T) {
	sets := newMemStudySetStore()
	resolver := NewStudySetTaskFactory(&fakeContent{}, &fakeEnricher{}, sets, quietLogger())

	original, err := resolver.NewTask(uuid.New())
	require.NoError(t, err)

	resolved, err := resolver.Resolve(original.ID(), original.Type(), original.Payload())
	require.NoError(t, err)
	assert.Equal(t, original.ID(), resolved.ID(), "resolved task keeps the stored identity")
	assert.Equal(t, TaskTypeStudySetGeneration, resolved.Type())
	assert.Equal(t, original.Payload(), resolved.Payload())

	_, err = resolver.Resolve(uuid.New(), "unknown_type", nil)
	assert.Error(t, err)

	_, err = resolver.Resolve(uuid.New(), TaskTypeStudySetGeneration, []byte("not json"))
	assert.Error(t, err)
}

// stubTask is a minimal Task for queue and runner tests.
type stubTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func newStubTask(execute func(ctx context.Context) error) *stubTask {
	return &stubTask{id: uuid.New(), execute: execute}
}

func (s *stubTask) ID() uuid.UUID      { return s.id }
func (s *stubTask) Type() string       { return "stub" }
func (s *stubTask) Payload() []byte    { return []byte("{}") }
func (s *stubTask) Status() TaskStatus { return TaskStatusPending }
func (s *stubTask) Execute(ctx context.Context) error {
	if s.execute != nil {
		return s.execute(ctx)
	}
	return nil
}

// memTaskStore is an in-memory TaskStore tracking status transitions.
type memTaskStore struct {
	mu       sync.Mutex
	saved    []Task
	statuses map[uuid.UUID][]TaskStatus
	pending  []Task
	procing  []Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{statuses: make(map[uuid.UUID][]TaskStatus)}
}

func (m *memTaskStore) SaveTask(ctx context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, t)
	return nil
}

func (m *memTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = append(m.statuses[id], status)
	return nil
}

func (m *memTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return m.pending, nil
}

func (m *memTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	if olderThan > 0 {
		return nil, nil
	}
	return m.procing, nil
}

func (m *memTaskStore) WithTx(tx *sql.Tx) TaskStore { return m }

func (m *memTaskStore) history(id uuid.UUID) []TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskStatus, len(m.statuses[id]))
	copy(out, m.statuses[id])
	return out
}

func TestTaskQueue(t *testing.T) {
	q := NewTaskQueue(1, quietLogger())

	require.NoError(t, q.Enqueue(newStubTask(nil)))

	err := q.Enqueue(newStubTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	q.Close()
	err = q.Enqueue(newStubTask(nil))
	assert.ErrorIs(t, err, ErrQueueClosed)

	q.Close() // second close is a no-op
}

func TestRunnerProcessesSubmittedTask(t *testing.T) {
	ts := newMemTaskStore()
	runner := NewRunner(ts, nil, RunnerConfig{WorkerCount: 1, QueueSize: 4}, quietLogger())

	done := make(chan struct{})
	tk := newStubTask(func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, ts.SaveTask(context.Background(), tk))
	require.NoError(t, runner.Enqueue(tk))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}

	assert.Eventually(t, func() bool {
		h := ts.history(tk.ID())
		return len(h) == 2 && h[0] == TaskStatusProcessing && h[1] == TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerRecordsTaskFailure(t *testing.T) {
	ts := newMemTaskStore()
	runner := NewRunner(ts, nil, RunnerConfig{WorkerCount: 1, QueueSize: 4}, quietLogger())

	tk := newStubTask(func(ctx context.Context) error {
		return errors.New("boom")
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, ts.SaveTask(context.Background(), tk))
	require.NoError(t, runner.Enqueue(tk))

	assert.Eventually(t, func() bool {
		h := ts.history(tk.ID())
		return len(h) == 2 && h[1] == TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerRecoversInterruptedTasks(t *testing.T) {
	ts := newMemTaskStore()

	executed := make(chan uuid.UUID, 2)
	pendingTask := newStubTask(func(ctx context.Context) error {
		executed <- uuid.Nil
		return nil
	})
	interrupted := newStubTask(func(ctx context.Context) error {
		executed <- uuid.Nil
		return nil
	})
	ts.pending = []Task{pendingTask}
	ts.procing = []Task{interrupted}

	runner := NewRunner(ts, nil, RunnerConfig{WorkerCount: 1, QueueSize: 4}, quietLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("recovered tasks were not executed")
		}
	}

	// The interrupted task was reset to pending before requeueing.
	h := ts.history(interrupted.ID())
	require.NotEmpty(t, h)
	assert.Equal(t, TaskStatusPending, h[0])
}
