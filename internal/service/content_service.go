package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/generation"
)

// MinInputChars is the floor below which prose operations short-circuit
// with TooShortMessage instead of issuing a model call.
const MinInputChars = 20

// TooShortMessage is returned by prose operations for degenerate input.
const TooShortMessage = "Please provide at least 20 characters of study material to work with."

// Placeholder strings returned when a low-stakes operation fails. These
// operations always return a string; they never surface errors to callers.
const (
	summaryUnavailable     = "A summary could not be generated right now. Please try again in a moment."
	explanationUnavailable = "An explanation could not be generated right now. Please try again in a moment."
)

// Defaults applied when a quiz request leaves parameters unset.
const (
	defaultQuizQuestionCount = 5
	maxQuizQuestionCount     = 20
)

// Fallback metadata used when suggestion fails for any reason.
const (
	fallbackTitleLength = 60
	fallbackSubject     = "General Studies"
	fallbackTopic       = "Study Material"
)

// ResultCache stores generated results keyed by operation and content hash.
// Implementations must be safe for concurrent use. A nil cache disables
// caching without changing operation behavior.
type ResultCache interface {
	// Get returns the cached value for key, or ok=false on miss or error.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key. Failures are logged by the
	// implementation and never surface to callers.
	Set(ctx context.Context, key, value string)
}

// ContentService implements the content generation operations over an
// injected generator, applying input guards, caching, and the per-operation
// failure policy.
type ContentService struct {
	logger    *slog.Logger
	generator generation.Generator
	cache     ResultCache
}

// NewContentService creates a ContentService. The cache may be nil.
func NewContentService(logger *slog.Logger, generator generation.Generator, cache ResultCache) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		logger:    logger.With(slog.String("component", "content_service")),
		generator: generator,
		cache:     cache,
	}
}

// cacheKey derives a stable cache key from the operation name and its
// distinguishing inputs.
func cacheKey(op string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}

func (s *ContentService) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(ctx, key)
}

func (s *ContentService) cacheSet(ctx context.Context, key, value string) {
	if s.cache != nil {
		s.cache.Set(ctx, key, value)
	}
}

// tooShort reports whether the input falls below the prose operation floor.
// The floor counts runes, so multibyte input is measured in characters.
func tooShort(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < MinInputChars
}

// SuggestMetadata proposes metadata for the source text. It never fails:
// any generation error falls back to a deterministically derived default.
func (s *ContentService) SuggestMetadata(ctx context.Context, text string) *domain.Metadata {
	meta, err := s.generator.SuggestMetadata(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "metadata suggestion failed, using derived default",
			"error", err)
		return deriveFallbackMetadata(text)
	}

	if meta.Subject == "" {
		meta.Subject = fallbackSubject
	}
	if meta.Topic == "" {
		meta.Topic = fallbackTopic
	}
	if meta.Difficulty != domain.DifficultyEasy &&
		meta.Difficulty != domain.DifficultyMedium &&
		meta.Difficulty != domain.DifficultyHard {
		meta.Difficulty = domain.DifficultyMedium
	}

	return meta
}

// deriveFallbackMetadata builds default metadata from the input prefix.
func deriveFallbackMetadata(text string) *domain.Metadata {
	title := strings.TrimSpace(text)
	if idx := strings.IndexByte(title, '\n'); idx > 0 {
		title = title[:idx]
	}
	if utf8.RuneCountInString(title) > fallbackTitleLength {
		title = strings.TrimSpace(string([]rune(title)[:fallbackTitleLength]))
	}
	if title == "" {
		title = "Untitled Study Set"
	}

	return &domain.Metadata{
		Title:      title,
		Subject:    fallbackSubject,
		Topic:      fallbackTopic,
		Difficulty: domain.DifficultyMedium,
	}
}

// Summarize returns a prose summary. Input below the minimum length returns
// TooShortMessage without a model call; generation failures degrade to a
// placeholder. The returned string is always displayable.
func (s *ContentService) Summarize(ctx context.Context, text string) string {
	if tooShort(text) {
		return TooShortMessage
	}

	key := cacheKey("summary", text)
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached
	}

	summary, err := s.generator.Summarize(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "summary generation failed, returning placeholder",
			"error", err)
		return summaryUnavailable
	}

	s.cacheSet(ctx, key, summary)
	return summary
}

// Explain returns a plain-language explanation with the same guard and
// degradation policy as Summarize.
func (s *ContentService) Explain(ctx context.Context, text string) string {
	if tooShort(text) {
		return TooShortMessage
	}

	key := cacheKey("explanation", text)
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached
	}

	explanation, err := s.generator.Explain(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "explanation generation failed, returning placeholder",
			"error", err)
		return explanationUnavailable
	}

	s.cacheSet(ctx, key, explanation)
	return explanation
}

// GenerateNotes returns Markdown notes at the requested level. There is no
// meaningful degraded output for notes, so failures propagate.
func (s *ContentService) GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error) {
	key := cacheKey("notes", text, string(level))
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached, nil
	}

	notes, err := s.generator.GenerateNotes(ctx, text, level)
	if err != nil {
		return "", fmt.Errorf("failed to generate notes: %w", err)
	}

	s.cacheSet(ctx, key, notes)
	return notes, nil
}

// GenerateQuiz returns a structured quiz. Failures propagate: there is no
// safe placeholder for a missing quiz.
func (s *ContentService) GenerateQuiz(
	ctx context.Context,
	text string,
	questionCount int,
	difficulty domain.Difficulty,
) (*domain.Quiz, error) {
	if questionCount <= 0 {
		questionCount = defaultQuizQuestionCount
	}
	if questionCount > maxQuizQuestionCount {
		questionCount = maxQuizQuestionCount
	}
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	key := cacheKey("quiz", text, fmt.Sprintf("%d", questionCount), string(difficulty))
	if cached, ok := s.cacheGet(ctx, key); ok {
		var quiz domain.Quiz
		if err := json.Unmarshal([]byte(cached), &quiz); err == nil {
			return &quiz, nil
		}
	}

	quiz, err := s.generator.GenerateQuiz(ctx, text, questionCount, difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	if encoded, err := json.Marshal(quiz); err == nil {
		s.cacheSet(ctx, key, string(encoded))
	}
	return quiz, nil
}

// GenerateFeedback returns encouraging feedback on a quiz result. Failures
// degrade to a deterministic score recap; the result is always displayable.
func (s *ContentService) GenerateFeedback(ctx context.Context, score, total int, topic string) string {
	if topic == "" {
		topic = fallbackTopic
	}

	feedback, err := s.generator.GenerateFeedback(ctx, score, total, topic)
	if err != nil {
		s.logger.WarnContext(ctx, "feedback generation failed, returning placeholder",
			"error", err)
		return fmt.Sprintf("You scored %d out of %d on %s. Keep going!", score, total, topic)
	}

	return feedback
}

// GenerateSlideDeck returns a slide outline with unresolved image
// references. Failures propagate.
func (s *ContentService) GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error) {
	deck, err := s.generator.GenerateSlideDeck(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate slide deck: %w", err)
	}
	return deck, nil
}

// GenerateVideoScript returns a scene script with unresolved image
// references. Failures propagate.
func (s *ContentService) GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error) {
	script, err := s.generator.GenerateVideoScript(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate video script: %w", err)
	}
	return script, nil
}

// GenerateDiagram returns a Mermaid diagram description. Failures propagate.
func (s *ContentService) GenerateDiagram(ctx context.Context, text string) (string, error) {
	key := cacheKey("diagram", text)
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached, nil
	}

	diagram, err := s.generator.GenerateDiagram(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate diagram: %w", err)
	}

	s.cacheSet(ctx, key, diagram)
	return diagram, nil
}
