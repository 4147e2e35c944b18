package api

import (
	"context"
	"net/http"

	"github.com/studykit/api/internal/api/shared"
	"github.com/studykit/api/internal/domain"
)

// ContentService is the slice of the content generation pipeline used by the
// HTTP handlers.
type ContentService interface {
	SuggestMetadata(ctx context.Context, text string) *domain.Metadata
	Summarize(ctx context.Context, text string) string
	Explain(ctx context.Context, text string) string
	GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error)
	GenerateQuiz(ctx context.Context, text string, questionCount int, difficulty domain.Difficulty) (*domain.Quiz, error)
	GenerateFeedback(ctx context.Context, score, total int, topic string) string
	GenerateDiagram(ctx context.Context, text string) (string, error)
}

// GenerateTextRequest is the request body for operations taking only source
// text.
type GenerateTextRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

// GenerateNotesRequest is the request body for notes generation. The level
// is checked against the permitted note levels in the handler.
type GenerateNotesRequest struct {
	Text  string `json:"text" validate:"required,min=1"`
	Level string `json:"level"`
}

// GenerateQuizRequest is the request body for quiz generation.
type GenerateQuizRequest struct {
	Text          string `json:"text"           validate:"required,min=1"`
	QuestionCount int    `json:"question_count" validate:"omitempty,gte=1,lte=20"`
	Difficulty    string `json:"difficulty"     validate:"omitempty,oneof=easy medium hard"`
}

// GenerateFeedbackRequest is the request body for quiz feedback.
type GenerateFeedbackRequest struct {
	Score int    `json:"score" validate:"gte=0"`
	Total int    `json:"total" validate:"required,gte=1"`
	Topic string `json:"topic"`
}

// GenerationHandler handles the synchronous generation endpoints.
type GenerationHandler struct {
	content ContentService
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(content ContentService) *GenerationHandler {
	return &GenerationHandler{content: content}
}

// decodeAndValidate decodes the request body into req and validates it,
// writing the error response itself on failure.
func (h *GenerationHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return false
	}
	return true
}

// SuggestMetadata handles POST /api/generate/metadata requests.
func (h *GenerationHandler) SuggestMetadata(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	meta := h.content.SuggestMetadata(r.Context(), req.Text)
	shared.RespondWithJSON(w, r, http.StatusOK, meta)
}

// Summarize handles POST /api/generate/summary requests.
func (h *GenerationHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	summary := h.content.Summarize(r.Context(), req.Text)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"summary": summary})
}

// Explain handles POST /api/generate/explanation requests.
func (h *GenerationHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	explanation := h.content.Explain(r.Context(), req.Text)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"explanation": explanation})
}

// GenerateNotes handles POST /api/generate/notes requests.
func (h *GenerationHandler) GenerateNotes(w http.ResponseWriter, r *http.Request) {
	var req GenerateNotesRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	level := domain.NoteLevelDetailed
	if req.Level != "" {
		parsed, err := domain.ParseNoteLevel(req.Level)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid notes level")
			return
		}
		level = parsed
	}

	notes, err := h.content.GenerateNotes(r.Context(), req.Text, level)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"notes": notes})
}

// GenerateQuiz handles POST /api/generate/quiz requests.
func (h *GenerationHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	quiz, err := h.content.GenerateQuiz(r.Context(), req.Text, req.QuestionCount, domain.Difficulty(req.Difficulty))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, quiz)
}

// GenerateFeedback handles POST /api/generate/feedback requests.
func (h *GenerationHandler) GenerateFeedback(w http.ResponseWriter, r *http.Request) {
	var req GenerateFeedbackRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Score > req.Total {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Score cannot exceed total")
		return
	}

	feedback := h.content.GenerateFeedback(r.Context(), req.Score, req.Total, req.Topic)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"feedback": feedback})
}

// GenerateDiagram handles POST /api/generate/diagram requests.
func (h *GenerationHandler) GenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	diagram, err := h.content.GenerateDiagram(r.Context(), req.Text)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"diagram": diagram})
}
