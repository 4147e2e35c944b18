package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/platform/logger"
	"github.com/studykit/api/internal/store"
)

// PostgresStudySetStore implements the store.StudySetStore interface using a
// PostgreSQL database as the storage backend. Generated artifacts are stored
// as a single JSONB document; they are written and read as a unit.
type PostgresStudySetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStudySetStore creates a PostgreSQL implementation of the
// StudySetStore interface. The database handle or transaction is managed by
// the caller. A nil logger falls back to the default.
func NewPostgresStudySetStore(db store.DBTX, log *slog.Logger) *PostgresStudySetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStudySetStore{
		db:     db,
		logger: log.With(slog.String("component", "study_set_store")),
	}
}

var _ store.StudySetStore = (*PostgresStudySetStore)(nil)

// WithTx implements store.StudySetStore.WithTx.
func (s *PostgresStudySetStore) WithTx(tx *sql.Tx) store.StudySetStore {
	return &PostgresStudySetStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.StudySetStore.Create.
func (s *PostgresStudySetStore) Create(ctx context.Context, set *domain.StudySet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := set.Validate(); err != nil {
		log.Warn("study set validation failed during create",
			slog.String("error", err.Error()),
			slog.String("study_set_id", set.ID.String()))
		return err
	}

	artifacts, err := json.Marshal(set.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	query := `
		INSERT INTO study_sets
			(id, title, subject, topic, difficulty, source_text, artifacts, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		set.ID,
		set.Metadata.Title,
		set.Metadata.Subject,
		set.Metadata.Topic,
		set.Metadata.Difficulty,
		set.SourceText,
		artifacts,
		set.Status,
		set.CreatedAt,
		set.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create study set",
			slog.String("error", err.Error()),
			slog.String("study_set_id", set.ID.String()))
		return MapError(err)
	}

	log.Info("study set created",
		slog.String("study_set_id", set.ID.String()),
		slog.String("status", string(set.Status)))
	return nil
}

// GetByID implements store.StudySetStore.GetByID.
func (s *PostgresStudySetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, title, subject, topic, difficulty, source_text, artifacts, status, created_at, updated_at
		FROM study_sets
		WHERE id = $1
	`

	set, err := scanStudySet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("study set not found", slog.String("study_set_id", id.String()))
			return nil, store.ErrStudySetNotFound
		}
		log.Error("failed to get study set by ID",
			slog.String("error", err.Error()),
			slog.String("study_set_id", id.String()))
		return nil, err
	}

	return set, nil
}

// Update implements store.StudySetStore.Update. It rewrites the metadata,
// artifacts document, and status of an existing study set.
func (s *PostgresStudySetStore) Update(ctx context.Context, set *domain.StudySet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := set.Validate(); err != nil {
		log.Warn("study set validation failed during update",
			slog.String("error", err.Error()),
			slog.String("study_set_id", set.ID.String()))
		return err
	}

	artifacts, err := json.Marshal(set.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	query := `
		UPDATE study_sets
		SET title = $1, subject = $2, topic = $3, difficulty = $4,
			artifacts = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		set.Metadata.Title,
		set.Metadata.Subject,
		set.Metadata.Topic,
		set.Metadata.Difficulty,
		artifacts,
		set.Status,
		time.Now().UTC(),
		set.ID,
	)
	if err != nil {
		log.Error("failed to update study set",
			slog.String("error", err.Error()),
			slog.String("study_set_id", set.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrStudySetNotFound); err != nil {
		return err
	}

	log.Info("study set updated",
		slog.String("study_set_id", set.ID.String()),
		slog.String("status", string(set.Status)))
	return nil
}

// UpdateStatus implements store.StudySetStore.UpdateStatus.
func (s *PostgresStudySetStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudySetStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE study_sets
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update study set status",
			slog.String("error", err.Error()),
			slog.String("study_set_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrStudySetNotFound); err != nil {
		log.Debug("study set not found for status update",
			slog.String("study_set_id", id.String()))
		return err
	}

	log.Debug("study set status updated",
		slog.String("study_set_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// List implements store.StudySetStore.List.
func (s *PostgresStudySetStore) List(ctx context.Context, limit, offset int) ([]*domain.StudySet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, title, subject, topic, difficulty, source_text, artifacts, status, created_at, updated_at
		FROM study_sets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.Error("failed to list study sets", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	sets := []*domain.StudySet{}
	for rows.Next() {
		set, err := scanStudySet(rows)
		if err != nil {
			log.Error("failed to scan study set row", slog.String("error", err.Error()))
			return nil, err
		}
		sets = append(sets, set)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return sets, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudySet(row rowScanner) (*domain.StudySet, error) {
	var set domain.StudySet
	var difficulty, status string
	var artifacts []byte

	err := row.Scan(
		&set.ID,
		&set.Metadata.Title,
		&set.Metadata.Subject,
		&set.Metadata.Topic,
		&difficulty,
		&set.SourceText,
		&artifacts,
		&status,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	set.Metadata.Difficulty = domain.Difficulty(difficulty)
	set.Status = domain.StudySetStatus(status)

	if len(artifacts) > 0 {
		if err := json.Unmarshal(artifacts, &set.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}

	return &set, nil
}
