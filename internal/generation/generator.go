package generation

import (
	"context"

	"github.com/studykit/api/internal/domain"
)

// Generator defines the interface for producing study material from source
// text. It is the boundary between the application core and the external
// text model, following the hexagonal architecture pattern: implementations
// own prompt construction, structured-output schemas, and response parsing,
// while callers own input guards and fallback policy.
type Generator interface {
	// SuggestMetadata proposes a title, subject, topic, and difficulty for
	// the given source text.
	SuggestMetadata(ctx context.Context, text string) (*domain.Metadata, error)

	// Summarize produces a short prose summary of the source text.
	Summarize(ctx context.Context, text string) (string, error)

	// Explain produces a plain-language explanation of the source text.
	Explain(ctx context.Context, text string) (string, error)

	// GenerateNotes produces Markdown study notes at the requested detail
	// level.
	GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error)

	// GenerateQuiz produces a multiple-choice quiz with the requested number
	// of questions at the requested difficulty.
	GenerateQuiz(ctx context.Context, text string, questionCount int, difficulty domain.Difficulty) (*domain.Quiz, error)

	// GenerateFeedback produces an encouraging prose assessment of a quiz
	// result.
	GenerateFeedback(ctx context.Context, score, total int, topic string) (string, error)

	// GenerateSlideDeck produces a slide outline with per-slide image
	// prompts. Slides carry no image references; enrichment fills those in.
	GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error)

	// GenerateVideoScript produces a narrated scene script with per-scene
	// image prompts.
	GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error)

	// GenerateDiagram produces a Mermaid block-diagram description limited
	// to the two permitted graph orientations.
	GenerateDiagram(ctx context.Context, text string) (string, error)
}

// Image is a generated image returned by the image model.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageRequest describes a single call to the image model.
type ImageRequest struct {
	// Prompt is the image description.
	Prompt string

	// AspectRatio is the requested aspect ratio, e.g. "16:9".
	AspectRatio string
}

// ImageGenerator is implemented by adapters that can produce images from a
// text prompt.
type ImageGenerator interface {
	// GenerateImage sends the request to the image model and returns the
	// first generated image. Returns ErrMissingAPIKey without a remote call
	// when no credential is configured.
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}
