package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/generation"
)

// newTestEnricher returns an enricher whose delays are recorded instead of
// slept and whose run nonce is fixed.
func newTestEnricher(images generation.ImageGenerator) (*Enricher, *[]time.Duration) {
	delays := &[]time.Duration{}
	e := NewEnricher(quietLogger(), images)
	e.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	e.seed = func() int64 { return 1000 }
	return e, delays
}

func testDeck(n int) *domain.SlideDeck {
	deck := &domain.SlideDeck{Title: "Water Cycle"}
	for i := 0; i < n; i++ {
		deck.Slides = append(deck.Slides, domain.Slide{
			Heading:     fmt.Sprintf("Slide %d", i+1),
			Bullets:     []string{"point"},
			ImagePrompt: fmt.Sprintf("illustration %d", i+1),
		})
	}
	return deck
}

func TestEnrichSlideDeckAllGenerated(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return &generation.Image{Data: []byte("png-bytes"), MIMEType: "image/png"}, nil
		},
	}
	e, delays := newTestEnricher(images)

	enriched, err := e.EnrichSlideDeck(context.Background(), testDeck(3), nil)
	require.NoError(t, err)

	require.Len(t, enriched.Slides, 3)
	assert.True(t, enriched.Resolved())
	for _, s := range enriched.Slides {
		assert.True(t, strings.HasPrefix(s.ImageRef, "data:image/png;base64,"))
	}

	// One inter-item delay between each pair of items, none before the first.
	assert.Equal(t, []time.Duration{interItemDelay, interItemDelay}, *delays)

	// Requests went out strictly in document order.
	assert.Equal(t, []string{"illustration 1", "illustration 2", "illustration 3"}, images.prompts)
}

func TestEnrichSlideDeckProviderAlwaysFails(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return nil, errors.New("image backend rejected the request")
		},
	}
	e, _ := newTestEnricher(images)

	const n = 4
	enriched, err := e.EnrichSlideDeck(context.Background(), testDeck(n), nil)
	require.NoError(t, err, "item failures must not fail the run")

	require.Len(t, enriched.Slides, n)
	for i, s := range enriched.Slides {
		assert.NotEmpty(t, s.ImageRef, "every item ends with some image reference")
		assert.Contains(t, s.ImageRef, fallbackImageBase)
		assert.Contains(t, s.ImageRef, fmt.Sprintf("seed=%d", 1000+i), "seed varies per item")
		assert.Equal(t, fmt.Sprintf("Slide %d", i+1), s.Heading, "item order is preserved")
	}
}

func TestEnrichSlideDeckMissingCredentialFallsBack(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return nil, generation.ErrMissingAPIKey
		},
	}
	e, _ := newTestEnricher(images)

	enriched, err := e.EnrichSlideDeck(context.Background(), testDeck(2), nil)
	require.NoError(t, err)

	assert.True(t, enriched.Resolved())
	// Missing credential is fatal, not transient: one attempt per item.
	assert.Len(t, images.prompts, 2)
}

func TestEnrichSlideDeckMixedResults(t *testing.T) {
	call := 0
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			call++
			if call == 2 {
				return nil, errors.New("bad prompt")
			}
			return &generation.Image{Data: []byte("ok"), MIMEType: "image/png"}, nil
		},
	}
	e, _ := newTestEnricher(images)

	enriched, err := e.EnrichSlideDeck(context.Background(), testDeck(3), nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(enriched.Slides[0].ImageRef, "data:"))
	assert.Contains(t, enriched.Slides[1].ImageRef, fallbackImageBase)
	assert.True(t, strings.HasPrefix(enriched.Slides[2].ImageRef, "data:"))
}

func TestEnrichSlideDeckProgressMessages(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return nil, errors.New("no luck")
		},
	}
	e, _ := newTestEnricher(images)

	var messages []string
	sink := ProgressFunc(func(m string) { messages = append(messages, m) })

	_, err := e.EnrichSlideDeck(context.Background(), testDeck(2), sink)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "Using fallback image for item 1 of 2", messages[0])
	assert.Equal(t, "Using fallback image for item 2 of 2", messages[1])
}

func TestEnrichSlideDeckRejectsInvalidDocument(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			t.Fatal("no image request may be issued for an invalid document")
			return nil, nil
		},
	}
	e, _ := newTestEnricher(images)

	_, err := e.EnrichSlideDeck(context.Background(), &domain.SlideDeck{Title: ""}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyDocumentTitle)
}

func TestEnrichSlideDeckDoesNotMutateInput(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return &generation.Image{Data: []byte("ok"), MIMEType: "image/png"}, nil
		},
	}
	e, _ := newTestEnricher(images)

	original := testDeck(2)
	enriched, err := e.EnrichSlideDeck(context.Background(), original, nil)
	require.NoError(t, err)

	assert.False(t, original.Resolved(), "input deck stays unresolved")
	assert.True(t, enriched.Resolved())
}

func TestEnrichVideoScript(t *testing.T) {
	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return nil, errors.New("provider down")
		},
	}
	e, delays := newTestEnricher(images)

	script := &domain.VideoScript{
		Title: "Cell Division",
		Scenes: []domain.Scene{
			{Narration: "First", ImagePrompt: "scene one"},
			{Narration: "Second", ImagePrompt: "scene two"},
			{Narration: "Third", ImagePrompt: "scene three"},
		},
	}

	enriched, err := e.EnrichVideoScript(context.Background(), script, nil)
	require.NoError(t, err)

	require.Len(t, enriched.Scenes, 3)
	assert.True(t, enriched.Resolved())
	assert.Equal(t, "First", enriched.Scenes[0].Narration)
	assert.Len(t, *delays, 2)
}

func TestEnrichSlideDeckContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	images := &mockImageGenerator{
		generateFn: func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
			return &generation.Image{Data: []byte("ok"), MIMEType: "image/png"}, nil
		},
	}
	e, _ := newTestEnricher(images)
	e.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := e.EnrichSlideDeck(ctx, testDeck(3), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackImageURL(t *testing.T) {
	got := FallbackImageURL("a red fox in the snow", 42)

	assert.Contains(t, got, fallbackImageBase)
	assert.Contains(t, got, "a%20red%20fox%20in%20the%20snow")
	assert.Contains(t, got, "width=1280")
	assert.Contains(t, got, "height=720")
	assert.Contains(t, got, "seed=42")

	assert.Equal(t, got, FallbackImageURL("a red fox in the snow", 42), "same prompt and seed are deterministic")
	assert.NotEqual(t, got, FallbackImageURL("a red fox in the snow", 43))
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Progress("first")
	sink.Progress("second") // dropped, must not block

	assert.Equal(t, "first", <-sink.Messages())

	select {
	case m := <-sink.Messages():
		t.Fatalf("unexpected message %q", m)
	default:
	}

	sink.Close()
	_, open := <-sink.Messages()
	assert.False(t, open)
}
