package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/studykit/api/internal/api/shared"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/store"
)

// StudySetCreator persists a study set together with its generation task and
// hands the task to the worker pool.
type StudySetCreator interface {
	Create(ctx context.Context, set *domain.StudySet) error
}

// CreateStudySetRequest is the request body for creating a study set. The
// metadata fields are optional; missing metadata is suggested from the text.
type CreateStudySetRequest struct {
	Text       string `json:"text"       validate:"required,min=20"`
	Title      string `json:"title"      validate:"omitempty,max=200"`
	Subject    string `json:"subject"    validate:"omitempty,max=100"`
	Topic      string `json:"topic"      validate:"omitempty,max=100"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// StudySetResponse is the response shape for a study set. Artifacts are
// included only once generation has produced them.
type StudySetResponse struct {
	ID        string            `json:"id"`
	Metadata  domain.Metadata   `json:"metadata"`
	Status    string            `json:"status"`
	Artifacts *domain.Artifacts `json:"artifacts,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StudySetListResponse is the response shape for the dashboard list.
type StudySetListResponse struct {
	StudySets []StudySetResponse `json:"study_sets"`
}

// StudySetHandler handles study set HTTP requests.
type StudySetHandler struct {
	content ContentService
	sets    store.StudySetStore
	creator StudySetCreator
}

// NewStudySetHandler creates a StudySetHandler.
func NewStudySetHandler(
	content ContentService,
	sets store.StudySetStore,
	creator StudySetCreator,
) *StudySetHandler {
	return &StudySetHandler{
		content: content,
		sets:    sets,
		creator: creator,
	}
}

// CreateStudySet handles POST /api/study-sets requests. It persists a
// pending study set and enqueues background generation, responding with
// 202 Accepted; clients poll the study set until it reaches a terminal
// status.
func (h *StudySetHandler) CreateStudySet(w http.ResponseWriter, r *http.Request) {
	var req CreateStudySetRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	meta := domain.Metadata{
		Title:      req.Title,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: domain.Difficulty(req.Difficulty),
	}
	if meta.Title == "" {
		// Suggestion never fails; it degrades to metadata derived from the
		// text itself.
		meta = *h.content.SuggestMetadata(r.Context(), req.Text)
	}
	if meta.Difficulty == "" {
		meta.Difficulty = domain.DifficultyMedium
	}

	set, err := domain.NewStudySet(meta, req.Text)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid study set data", err)
		return
	}

	if err := h.creator.Create(r.Context(), set); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, studySetToResponse(set, false))
}

// GetStudySet handles GET /api/study-sets/{id} requests.
func (h *StudySetHandler) GetStudySet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid study set ID")
		return
	}

	set, err := h.sets.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, studySetToResponse(set, true))
}

// ListStudySets handles GET /api/study-sets requests. Artifacts are omitted
// from the list; clients fetch a single set for the full document.
func (h *StudySetHandler) ListStudySets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	sets, err := h.sets.List(r.Context(), limit, offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := StudySetListResponse{StudySets: make([]StudySetResponse, 0, len(sets))}
	for _, set := range sets {
		resp.StudySets = append(resp.StudySets, studySetToResponse(set, false))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

func studySetToResponse(set *domain.StudySet, includeArtifacts bool) StudySetResponse {
	resp := StudySetResponse{
		ID:        set.ID.String(),
		Metadata:  set.Metadata,
		Status:    string(set.Status),
		CreatedAt: set.CreatedAt,
		UpdatedAt: set.UpdatedAt,
	}
	if includeArtifacts {
		artifacts := set.Artifacts
		resp.Artifacts = &artifacts
	}
	return resp
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
