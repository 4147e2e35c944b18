package gemini

import (
	"context"
	"fmt"

	"github.com/studykit/api/internal/generation"
	"google.golang.org/genai"
)

// GenerateImage implements generation.ImageGenerator. It asks the image
// model for a single image and returns its binary payload with MIME type.
func (g *Generator) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	if g.client == nil {
		return nil, generation.ErrMissingAPIKey
	}

	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: image prompt cannot be empty", generation.ErrInvalidConfig)
	}

	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	g.logger.DebugContext(ctx, "calling Gemini image model",
		"model", g.cfg.ImageModel,
		"prompt_length", len(req.Prompt),
		"aspect_ratio", aspectRatio)

	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image generation failed: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("%w: no image generated", generation.ErrInvalidResponse)
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", generation.ErrInvalidResponse)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &generation.Image{Data: img.ImageBytes, MIMEType: mimeType}, nil
}
