package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/studykit/api/internal/domain"
)

// StudySetStore defines the interface for study set persistence.
type StudySetStore interface {
	// Create saves a new study set. It validates the study set and returns
	// the domain validation error if the data is invalid.
	Create(ctx context.Context, set *domain.StudySet) error

	// GetByID retrieves a study set by its unique ID.
	// Returns ErrStudySetNotFound if the study set does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySet, error)

	// Update saves changes to an existing study set, including its metadata
	// and generated artifacts.
	// Returns ErrStudySetNotFound if the study set does not exist.
	Update(ctx context.Context, set *domain.StudySet) error

	// UpdateStatus updates only the status of an existing study set.
	// Returns ErrStudySetNotFound if the study set does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudySetStatus) error

	// List retrieves study sets ordered by creation time, newest first.
	// Returns an empty slice when no study sets exist. limit and offset
	// paginate the result.
	List(ctx context.Context, limit, offset int) ([]*domain.StudySet, error)

	// WithTx returns a StudySetStore bound to the provided transaction.
	// The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) StudySetStore
}
