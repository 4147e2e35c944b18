package domain

import "errors"

// Validation errors for structured documents.
var (
	ErrEmptyDocumentTitle = errors.New("document title cannot be empty")
	ErrNoDocumentItems    = errors.New("document must contain at least one item")
	ErrEmptyImagePrompt   = errors.New("document item is missing an image prompt")
)

// Slide is one item of a slide deck: a heading, bullet text, the prompt used
// to generate an illustrative image, and the resulting image reference. The
// image reference stays empty until the enrichment pipeline fills it in.
type Slide struct {
	Heading     string   `json:"heading"`
	Bullets     []string `json:"bullets"`
	ImagePrompt string   `json:"image_prompt"`
	ImageRef    string   `json:"image_ref,omitempty"`
}

// SlideDeck is an ordered slide presentation generated from source text.
type SlideDeck struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Validate checks structural validity of the deck.
func (d *SlideDeck) Validate() error {
	if d.Title == "" {
		return ErrEmptyDocumentTitle
	}
	if len(d.Slides) == 0 {
		return ErrNoDocumentItems
	}
	for _, s := range d.Slides {
		if s.ImagePrompt == "" {
			return ErrEmptyImagePrompt
		}
	}
	return nil
}

// Resolved reports whether every slide carries an image reference. The
// enrichment pipeline only ever hands back fully resolved decks.
func (d *SlideDeck) Resolved() bool {
	for _, s := range d.Slides {
		if s.ImageRef == "" {
			return false
		}
	}
	return true
}

// Scene is one item of a video script: narration text plus an image prompt
// and, once enriched, an image reference.
type Scene struct {
	Narration   string `json:"narration"`
	ImagePrompt string `json:"image_prompt"`
	ImageRef    string `json:"image_ref,omitempty"`
}

// VideoScript is an ordered sequence of narrated scenes generated from
// source text, intended for a short study video.
type VideoScript struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// Validate checks structural validity of the script.
func (v *VideoScript) Validate() error {
	if v.Title == "" {
		return ErrEmptyDocumentTitle
	}
	if len(v.Scenes) == 0 {
		return ErrNoDocumentItems
	}
	for _, s := range v.Scenes {
		if s.ImagePrompt == "" {
			return ErrEmptyImagePrompt
		}
	}
	return nil
}

// Resolved reports whether every scene carries an image reference.
func (v *VideoScript) Resolved() bool {
	for _, s := range v.Scenes {
		if s.ImageRef == "" {
			return false
		}
	}
	return true
}
