package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StudySetStatus represents the processing state of a study set.
type StudySetStatus string

// Possible study set status values. A set moves from pending to processing
// when background enrichment starts, then to one of the terminal states.
const (
	StudySetStatusPending             StudySetStatus = "pending"
	StudySetStatusProcessing          StudySetStatus = "processing"
	StudySetStatusCompleted           StudySetStatus = "completed"
	StudySetStatusCompletedWithErrors StudySetStatus = "completed_with_errors"
	StudySetStatusFailed              StudySetStatus = "failed"
)

// Difficulty is the declared difficulty of a study set.
type Difficulty string

// Permitted difficulty values.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Common validation errors for StudySet.
var (
	ErrEmptyStudySetID       = errors.New("study set ID cannot be empty")
	ErrEmptyStudySetTitle    = errors.New("study set title cannot be empty")
	ErrEmptySourceText       = errors.New("study set source text cannot be empty")
	ErrInvalidStudySetStatus = errors.New("invalid study set status")
	ErrInvalidDifficulty     = errors.New("invalid difficulty")
)

// Metadata describes a study set: a display title plus subject, topic, and
// difficulty classification. It is normally suggested by the model but can
// always fall back to a derived default.
type Metadata struct {
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
}

// Artifacts bundles the generated study material attached to a study set.
// Fields are filled in as the generation pipeline completes; the deck and
// script are replaced by their enriched forms when background enrichment
// finishes.
type Artifacts struct {
	Summary string       `json:"summary,omitempty"`
	Notes   string       `json:"notes,omitempty"`
	Quiz    *Quiz        `json:"quiz,omitempty"`
	Deck    *SlideDeck   `json:"deck,omitempty"`
	Script  *VideoScript `json:"script,omitempty"`
	Diagram string       `json:"diagram,omitempty"`
}

// StudySet is a unit of study material generated from one piece of user
// submitted source text. It tracks the original text, the suggested
// metadata, the generated artifacts, and the enrichment lifecycle status.
type StudySet struct {
	ID         uuid.UUID      `json:"id"`
	Metadata   Metadata       `json:"metadata"`
	SourceText string         `json:"source_text"`
	Artifacts  Artifacts      `json:"artifacts"`
	Status     StudySetStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewStudySet creates a new StudySet from source text and suggested
// metadata. It generates a new UUID, sets the status to pending, and stamps
// the creation time. Returns an error if validation fails.
func NewStudySet(meta Metadata, sourceText string) (*StudySet, error) {
	now := time.Now().UTC()
	set := &StudySet{
		ID:         uuid.New(),
		Metadata:   meta,
		SourceText: sourceText,
		Status:     StudySetStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

// Validate checks if the StudySet has valid data.
func (s *StudySet) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyStudySetID
	}

	if s.Metadata.Title == "" {
		return ErrEmptyStudySetTitle
	}

	if s.SourceText == "" {
		return ErrEmptySourceText
	}

	if !isValidDifficulty(s.Metadata.Difficulty) {
		return ErrInvalidDifficulty
	}

	if !isValidStudySetStatus(s.Status) {
		return ErrInvalidStudySetStatus
	}

	return nil
}

// UpdateStatus updates the study set's status and refreshes the UpdatedAt
// timestamp. Returns an error if the new status is invalid.
func (s *StudySet) UpdateStatus(status StudySetStatus) error {
	if !isValidStudySetStatus(status) {
		return ErrInvalidStudySetStatus
	}

	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func isValidStudySetStatus(status StudySetStatus) bool {
	switch status {
	case StudySetStatusPending, StudySetStatusProcessing, StudySetStatusCompleted,
		StudySetStatusCompletedWithErrors, StudySetStatusFailed:
		return true
	default:
		return false
	}
}

func isValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}
