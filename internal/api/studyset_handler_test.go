package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/store"
	"github.com/studykit/api/internal/task"
)

// fakeStudySetStore is an in-memory store.StudySetStore for handler tests.
type fakeStudySetStore struct {
	mu     sync.Mutex
	sets   map[uuid.UUID]*domain.StudySet
	listed []*domain.StudySet
}

func newFakeStudySetStore() *fakeStudySetStore {
	return &fakeStudySetStore{sets: make(map[uuid.UUID]*domain.StudySet)}
}

func (f *fakeStudySetStore) Create(ctx context.Context, set *domain.StudySet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *set
	f.sets[set.ID] = &copied
	return nil
}

func (f *fakeStudySetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[id]
	if !ok {
		return nil, store.ErrStudySetNotFound
	}
	copied := *set
	return &copied, nil
}

func (f *fakeStudySetStore) Update(ctx context.Context, set *domain.StudySet) error {
	return f.Create(ctx, set)
}

func (f *fakeStudySetStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudySetStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[id]
	if !ok {
		return store.ErrStudySetNotFound
	}
	set.Status = status
	return nil
}

func (f *fakeStudySetStore) List(ctx context.Context, limit, offset int) ([]*domain.StudySet, error) {
	return f.listed, nil
}

func (f *fakeStudySetStore) WithTx(tx *sql.Tx) store.StudySetStore { return f }

// fakeCreator records created sets and can simulate submission failures.
type fakeCreator struct {
	created []*domain.StudySet
	err     error
}

func (f *fakeCreator) Create(ctx context.Context, set *domain.StudySet) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, set)
	return nil
}

const createText = "Photosynthesis converts light energy into chemical energy inside chloroplasts."

func newStudySetTestHandler() (*StudySetHandler, *fakeStudySetStore, *fakeCreator) {
	content := &mockContentService{
		suggestMetadataFn: func(ctx context.Context, text string) *domain.Metadata {
			return &domain.Metadata{
				Title:      "Suggested",
				Subject:    "Biology",
				Topic:      "Photosynthesis",
				Difficulty: domain.DifficultyMedium,
			}
		},
	}
	sets := newFakeStudySetStore()
	creator := &fakeCreator{}
	return NewStudySetHandler(content, sets, creator), sets, creator
}

func TestCreateStudySetAccepted(t *testing.T) {
	h, _, creator := newStudySetTestHandler()

	body, _ := json.Marshal(map[string]string{
		"text":  createText,
		"title": "My Set",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/study-sets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateStudySet(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp StudySetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "My Set", resp.Metadata.Title)
	assert.Equal(t, string(domain.StudySetStatusPending), resp.Status)
	assert.Nil(t, resp.Artifacts)

	// Exactly one set was handed to the submission service, and it is the
	// set the response describes.
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	require.Len(t, creator.created, 1)
	assert.Equal(t, id, creator.created[0].ID)
	assert.Equal(t, createText, creator.created[0].SourceText)
}

func TestCreateStudySetSuggestsMissingMetadata(t *testing.T) {
	h, _, _ := newStudySetTestHandler()

	body, _ := json.Marshal(map[string]string{"text": createText})
	req := httptest.NewRequest(http.MethodPost, "/api/study-sets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateStudySet(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp StudySetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Suggested", resp.Metadata.Title)
}

func TestCreateStudySetRejectsShortText(t *testing.T) {
	h, _, _ := newStudySetTestHandler()

	body, _ := json.Marshal(map[string]string{"text": "too short"})
	req := httptest.NewRequest(http.MethodPost, "/api/study-sets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateStudySet(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStudySetQueueFullMapsToServiceUnavailable(t *testing.T) {
	h, _, creator := newStudySetTestHandler()
	creator.err = task.ErrQueueFull

	body, _ := json.Marshal(map[string]string{"text": createText, "title": "My Set"})
	req := httptest.NewRequest(http.MethodPost, "/api/study-sets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateStudySet(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "busy")
}

func TestGetStudySet(t *testing.T) {
	h, sets, _ := newStudySetTestHandler()

	set, err := domain.NewStudySet(domain.Metadata{
		Title:      "Done Set",
		Difficulty: domain.DifficultyEasy,
	}, createText)
	require.NoError(t, err)
	set.Artifacts.Summary = "a summary"
	require.NoError(t, set.UpdateStatus(domain.StudySetStatusCompleted))
	require.NoError(t, sets.Create(context.Background(), set))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", set.ID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/study-sets/"+set.ID.String(), nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.GetStudySet(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StudySetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.StudySetStatusCompleted), resp.Status)
	require.NotNil(t, resp.Artifacts)
	assert.Equal(t, "a summary", resp.Artifacts.Summary)
}

func TestGetStudySetNotFound(t *testing.T) {
	h, _, _ := newStudySetTestHandler()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", uuid.New().String())
	req := httptest.NewRequest(http.MethodGet, "/api/study-sets/missing", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.GetStudySet(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Study set not found")
}

func TestGetStudySetInvalidID(t *testing.T) {
	h, _, _ := newStudySetTestHandler()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/api/study-sets/not-a-uuid", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.GetStudySet(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStudySetsOmitsArtifacts(t *testing.T) {
	h, sets, _ := newStudySetTestHandler()

	set, err := domain.NewStudySet(domain.Metadata{
		Title:      "Listed",
		Difficulty: domain.DifficultyMedium,
	}, createText)
	require.NoError(t, err)
	set.Artifacts.Summary = "hidden in list view"
	sets.listed = []*domain.StudySet{set}

	req := httptest.NewRequest(http.MethodGet, "/api/study-sets", nil)
	w := httptest.NewRecorder()
	h.ListStudySets(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StudySetListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.StudySets, 1)
	assert.Equal(t, "Listed", resp.StudySets[0].Metadata.Title)
	assert.Nil(t, resp.StudySets[0].Artifacts)
}
