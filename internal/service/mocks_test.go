package service

import (
	"context"
	"sync"

	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/generation"
)

// mockGenerator implements generation.Generator with per-operation function
// fields. Unset operations fail the contract loudly by returning a nil
// result, which tests never rely on.
type mockGenerator struct {
	suggestMetadataFn func(ctx context.Context, text string) (*domain.Metadata, error)
	summarizeFn       func(ctx context.Context, text string) (string, error)
	explainFn         func(ctx context.Context, text string) (string, error)
	notesFn           func(ctx context.Context, text string, level domain.NoteLevel) (string, error)
	quizFn            func(ctx context.Context, text string, n int, d domain.Difficulty) (*domain.Quiz, error)
	feedbackFn        func(ctx context.Context, score, total int, topic string) (string, error)
	deckFn            func(ctx context.Context, text string) (*domain.SlideDeck, error)
	scriptFn          func(ctx context.Context, text string) (*domain.VideoScript, error)
	diagramFn         func(ctx context.Context, text string) (string, error)

	calls int
}

func (m *mockGenerator) SuggestMetadata(ctx context.Context, text string) (*domain.Metadata, error) {
	m.calls++
	return m.suggestMetadataFn(ctx, text)
}

func (m *mockGenerator) Summarize(ctx context.Context, text string) (string, error) {
	m.calls++
	return m.summarizeFn(ctx, text)
}

func (m *mockGenerator) Explain(ctx context.Context, text string) (string, error) {
	m.calls++
	return m.explainFn(ctx, text)
}

func (m *mockGenerator) GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error) {
	m.calls++
	return m.notesFn(ctx, text, level)
}

func (m *mockGenerator) GenerateQuiz(
	ctx context.Context,
	text string,
	n int,
	d domain.Difficulty,
) (*domain.Quiz, error) {
	m.calls++
	return m.quizFn(ctx, text, n, d)
}

func (m *mockGenerator) GenerateFeedback(ctx context.Context, score, total int, topic string) (string, error) {
	m.calls++
	return m.feedbackFn(ctx, score, total, topic)
}

func (m *mockGenerator) GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error) {
	m.calls++
	return m.deckFn(ctx, text)
}

func (m *mockGenerator) GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error) {
	m.calls++
	return m.scriptFn(ctx, text)
}

func (m *mockGenerator) GenerateDiagram(ctx context.Context, text string) (string, error) {
	m.calls++
	return m.diagramFn(ctx, text)
}

// mockImageGenerator implements generation.ImageGenerator.
type mockImageGenerator struct {
	generateFn func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error)

	prompts []string
}

func (m *mockImageGenerator) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	m.prompts = append(m.prompts, req.Prompt)
	return m.generateFn(ctx, req)
}

// memoryCache is an in-memory ResultCache for tests.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *memoryCache) Set(ctx context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}
