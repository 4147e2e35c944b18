package service

import (
	"fmt"
	"net/url"
)

// fallbackImageBase is the public prompt-to-image endpoint used when real
// image generation is unavailable or exhausted. The endpoint always succeeds
// at the HTTP layer; delivery is not verified here.
const fallbackImageBase = "https://image.pollinations.ai/prompt/"

// Fixed widescreen dimensions for fallback images.
const (
	fallbackImageWidth  = 1280
	fallbackImageHeight = 720
)

// FallbackImageURL synthesizes a deterministic image URL for a prompt and
// seed. The same prompt and seed always yield the same URL; the enrichment
// pipeline varies the seed per item and per run.
func FallbackImageURL(prompt string, seed int64) string {
	return fmt.Sprintf("%s%s?width=%d&height=%d&seed=%d&nologo=true",
		fallbackImageBase,
		url.PathEscape(prompt),
		fallbackImageWidth,
		fallbackImageHeight,
		seed)
}
