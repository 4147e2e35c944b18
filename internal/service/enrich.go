package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/generation"
	"github.com/studykit/api/internal/retry"
)

// Enrichment pipeline constants. Item processing is strictly sequential and
// the inter-item delay keeps the run under the image provider's rate limits;
// do not parallelize item requests without revisiting that contract.
const (
	enrichMaxAttempts    = 3
	enrichInitialBackoff = 2 * time.Second
	interItemDelay       = time.Second
	enrichAspectRatio    = "16:9"
)

// Enricher walks a structured document in order and attaches an image
// reference to every item: a data URL when generation succeeds, a
// deterministic fallback URL when generation is unavailable or retries are
// exhausted. A returned document always has every item resolved.
type Enricher struct {
	logger *slog.Logger
	images generation.ImageGenerator

	// sleep is the delay primitive, replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// seed produces the per-run nonce mixed into fallback seeds.
	seed func() int64
}

// NewEnricher creates an Enricher over the given image generator.
func NewEnricher(logger *slog.Logger, images generation.ImageGenerator) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		logger: logger.With(slog.String("component", "enricher")),
		images: images,
		sleep:  sleepContext,
		seed:   rand.Int63,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnrichSlideDeck resolves an image for every slide, in order. The input
// deck is not modified. The only error paths are an invalid input document
// and context cancellation; individual item failures resolve to fallback
// URLs instead of failing the run.
func (e *Enricher) EnrichSlideDeck(ctx context.Context, deck *domain.SlideDeck, sink ProgressSink) (*domain.SlideDeck, error) {
	if err := deck.Validate(); err != nil {
		return nil, fmt.Errorf("cannot enrich invalid slide deck: %w", err)
	}

	prompts := make([]string, len(deck.Slides))
	for i, s := range deck.Slides {
		prompts[i] = s.ImagePrompt
	}

	refs, err := e.resolveAll(ctx, prompts, sink)
	if err != nil {
		return nil, err
	}

	enriched := &domain.SlideDeck{
		Title:  deck.Title,
		Slides: make([]domain.Slide, len(deck.Slides)),
	}
	for i, s := range deck.Slides {
		s.ImageRef = refs[i]
		enriched.Slides[i] = s
	}
	return enriched, nil
}

// EnrichVideoScript resolves an image for every scene, in order, with the
// same guarantees as EnrichSlideDeck.
func (e *Enricher) EnrichVideoScript(ctx context.Context, script *domain.VideoScript, sink ProgressSink) (*domain.VideoScript, error) {
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("cannot enrich invalid video script: %w", err)
	}

	prompts := make([]string, len(script.Scenes))
	for i, s := range script.Scenes {
		prompts[i] = s.ImagePrompt
	}

	refs, err := e.resolveAll(ctx, prompts, sink)
	if err != nil {
		return nil, err
	}

	enriched := &domain.VideoScript{
		Title:  script.Title,
		Scenes: make([]domain.Scene, len(script.Scenes)),
	}
	for i, s := range script.Scenes {
		s.ImageRef = refs[i]
		enriched.Scenes[i] = s
	}
	return enriched, nil
}

// resolveAll walks the prompts strictly in order. Each item completes
// (success or fallback) before the next begins, with a fixed delay between
// items; there is never more than one image request in flight.
func (e *Enricher) resolveAll(ctx context.Context, prompts []string, sink ProgressSink) ([]string, error) {
	runNonce := e.seed()
	total := len(prompts)
	refs := make([]string, 0, total)

	for i, prompt := range prompts {
		if i > 0 {
			if err := e.sleep(ctx, interItemDelay); err != nil {
				return nil, err
			}
		}

		ref, generated := e.resolveImage(ctx, prompt, runNonce+int64(i), sink, i+1, total)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		refs = append(refs, ref)
		if generated {
			notify(sink, fmt.Sprintf("Generated image %d of %d", i+1, total))
		} else {
			notify(sink, fmt.Sprintf("Using fallback image for item %d of %d", i+1, total))
		}
	}

	return refs, nil
}

// resolveImage attempts real generation under the retry policy and falls
// back to a deterministic URL when the provider is unavailable or attempts
// are exhausted. It always returns a non-empty reference.
func (e *Enricher) resolveImage(
	ctx context.Context,
	prompt string,
	seed int64,
	sink ProgressSink,
	itemNum, total int,
) (ref string, generated bool) {
	policy := retry.Policy{
		MaxAttempts:  enrichMaxAttempts,
		InitialDelay: enrichInitialBackoff,
		OnRetry: func(attempt int, delay time.Duration) {
			notify(sink, fmt.Sprintf("Retrying image %d of %d (attempt %d) in %s",
				itemNum, total, attempt+1, delay))
		},
	}

	img, err := retry.Do(ctx, policy, func(ctx context.Context) (*generation.Image, error) {
		return e.images.GenerateImage(ctx, generation.ImageRequest{
			Prompt:      prompt,
			AspectRatio: enrichAspectRatio,
		})
	})
	if err != nil {
		e.logger.WarnContext(ctx, "image generation failed, using fallback",
			"item", itemNum,
			"total", total,
			"error", err)
		return FallbackImageURL(prompt, seed), false
	}

	return dataURL(img), true
}

// dataURL encodes a generated image as an inline data URL reference.
func dataURL(img *generation.Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}
