package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/service"
	"github.com/studykit/api/internal/store"
)

// ContentGenerator is the slice of the content service the generation task
// needs. Display operations return strings unconditionally; structural
// operations surface errors, which the task records against the artifact.
type ContentGenerator interface {
	SuggestMetadata(ctx context.Context, text string) *domain.Metadata
	Summarize(ctx context.Context, text string) string
	GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error)
	GenerateQuiz(ctx context.Context, text string, questionCount int, difficulty domain.Difficulty) (*domain.Quiz, error)
	GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error)
	GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error)
	GenerateDiagram(ctx context.Context, text string) (string, error)
}

// MediaEnricher resolves image references for structured documents.
type MediaEnricher interface {
	EnrichSlideDeck(ctx context.Context, deck *domain.SlideDeck, sink service.ProgressSink) (*domain.SlideDeck, error)
	EnrichVideoScript(ctx context.Context, script *domain.VideoScript, sink service.ProgressSink) (*domain.VideoScript, error)
}

// studySetGenerationPayload is the persisted form of the task data.
type studySetGenerationPayload struct {
	StudySetID uuid.UUID `json:"study_set_id"`
}

// StudySetGenerationTask assembles all study artifacts for one study set:
// metadata, summary, notes, quiz, slide deck, video script, and diagram,
// then enriches the deck and script with images. Individual artifact
// failures degrade the result instead of failing the task; the study set
// status records whether everything succeeded.
type StudySetGenerationTask struct {
	id       uuid.UUID
	setID    uuid.UUID
	content  ContentGenerator
	enricher MediaEnricher
	sets     store.StudySetStore
	logger   *slog.Logger
}

// NewStudySetGenerationTask creates a generation task for the given study set.
func NewStudySetGenerationTask(
	setID uuid.UUID,
	content ContentGenerator,
	enricher MediaEnricher,
	sets store.StudySetStore,
	logger *slog.Logger,
) (*StudySetGenerationTask, error) {
	if setID == uuid.Nil {
		return nil, errors.New("study set ID cannot be empty")
	}
	if content == nil {
		return nil, errors.New("content generator cannot be nil")
	}
	if enricher == nil {
		return nil, errors.New("media enricher cannot be nil")
	}
	if sets == nil {
		return nil, errors.New("study set store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StudySetGenerationTask{
		id:       uuid.New(),
		setID:    setID,
		content:  content,
		enricher: enricher,
		sets:     sets,
		logger:   logger.With(slog.String("component", "study_set_generation_task")),
	}, nil
}

// ID implements Task.ID.
func (t *StudySetGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type.
func (t *StudySetGenerationTask) Type() string {
	return TaskTypeStudySetGeneration
}

// Payload implements Task.Payload.
func (t *StudySetGenerationTask) Payload() []byte {
	data, err := json.Marshal(studySetGenerationPayload{StudySetID: t.setID})
	if err != nil {
		// Marshalling a struct of one UUID cannot fail.
		t.logger.Error("failed to marshal task payload", "error", err)
		return nil
	}
	return data
}

// Status implements Task.Status. Tasks are created pending; lifecycle status
// is tracked by the runner through the task store.
func (t *StudySetGenerationTask) Status() TaskStatus {
	return TaskStatusPending
}

// Execute implements Task.Execute. It loads the study set, generates every
// artifact, enriches the deck, and persists the result. Only infrastructure
// failures (missing set, persistence errors, cancellation) return an error
// and fail the task; artifact failures are absorbed into the set status.
func (t *StudySetGenerationTask) Execute(ctx context.Context) error {
	log := t.logger.With(slog.String("study_set_id", t.setID.String()))

	set, err := t.sets.GetByID(ctx, t.setID)
	if err != nil {
		return fmt.Errorf("failed to load study set: %w", err)
	}

	if err := t.sets.UpdateStatus(ctx, set.ID, domain.StudySetStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark study set processing: %w", err)
	}

	text := set.SourceText
	failed := 0

	// Metadata suggestion never fails; it falls back to derived defaults.
	// Keep metadata the user already supplied.
	if set.Metadata.Title == "" {
		set.Metadata = *t.content.SuggestMetadata(ctx, text)
	}

	set.Artifacts.Summary = t.content.Summarize(ctx, text)

	notes, err := t.content.GenerateNotes(ctx, text, domain.NoteLevelDetailed)
	if err != nil {
		log.Warn("notes generation failed", "error", err)
		failed++
	} else {
		set.Artifacts.Notes = notes
	}

	quiz, err := t.content.GenerateQuiz(ctx, text, 0, set.Metadata.Difficulty)
	if err != nil {
		log.Warn("quiz generation failed", "error", err)
		failed++
	} else {
		set.Artifacts.Quiz = quiz
	}

	deck, err := t.content.GenerateSlideDeck(ctx, text)
	if err != nil {
		log.Warn("slide deck generation failed", "error", err)
		failed++
	} else {
		enriched, err := t.enricher.EnrichSlideDeck(ctx, deck, nil)
		if err != nil {
			// Enrichment only fails on an invalid deck or cancellation;
			// keep the unresolved deck rather than dropping it.
			log.Warn("deck enrichment failed, keeping unresolved deck", "error", err)
			set.Artifacts.Deck = deck
			failed++
		} else {
			set.Artifacts.Deck = enriched
		}
	}

	script, err := t.content.GenerateVideoScript(ctx, text)
	if err != nil {
		log.Warn("video script generation failed", "error", err)
		failed++
	} else {
		enriched, err := t.enricher.EnrichVideoScript(ctx, script, nil)
		if err != nil {
			log.Warn("script enrichment failed, keeping unresolved script", "error", err)
			set.Artifacts.Script = script
			failed++
		} else {
			set.Artifacts.Script = enriched
		}
	}

	diagram, err := t.content.GenerateDiagram(ctx, text)
	if err != nil {
		log.Warn("diagram generation failed", "error", err)
		failed++
	} else {
		set.Artifacts.Diagram = diagram
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := domain.StudySetStatusCompleted
	if failed > 0 {
		status = domain.StudySetStatusCompletedWithErrors
	}
	if err := set.UpdateStatus(status); err != nil {
		return fmt.Errorf("failed to update study set status: %w", err)
	}

	if err := t.sets.Update(ctx, set); err != nil {
		return fmt.Errorf("failed to persist generated study set: %w", err)
	}

	log.Info("study set generation finished",
		"status", string(status),
		"failed_artifacts", failed)
	return nil
}

// StudySetTaskFactory builds study set generation tasks for new submissions
// and rebinds persisted ones after a restart.
type StudySetTaskFactory struct {
	content  ContentGenerator
	enricher MediaEnricher
	sets     store.StudySetStore
	logger   *slog.Logger
}

// NewStudySetTaskFactory creates a factory over the given collaborators.
func NewStudySetTaskFactory(
	content ContentGenerator,
	enricher MediaEnricher,
	sets store.StudySetStore,
	logger *slog.Logger,
) *StudySetTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudySetTaskFactory{
		content:  content,
		enricher: enricher,
		sets:     sets,
		logger:   logger,
	}
}

// NewTask creates a generation task for the given study set.
func (r *StudySetTaskFactory) NewTask(setID uuid.UUID) (Task, error) {
	return NewStudySetGenerationTask(setID, r.content, r.enricher, r.sets, r.logger)
}

// Resolve implements Resolver.
func (r *StudySetTaskFactory) Resolve(id uuid.UUID, taskType string, payload []byte) (Task, error) {
	if taskType != TaskTypeStudySetGeneration {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	var p studySetGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	t, err := NewStudySetGenerationTask(p.StudySetID, r.content, r.enricher, r.sets, r.logger)
	if err != nil {
		return nil, err
	}
	// Keep the stored identity so status updates hit the original row.
	t.id = id
	return t, nil
}
