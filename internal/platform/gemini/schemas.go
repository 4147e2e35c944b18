package gemini

import "google.golang.org/genai"

// Structured-output schemas passed to the model so responses can be
// mechanically parsed. Field names mirror the JSON tags on the domain types.

func metadataSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":   {Type: genai.TypeString},
			"subject": {Type: genai.TypeString},
			"topic":   {Type: genai.TypeString},
			"difficulty": {
				Type: genai.TypeString,
				Enum: []string{"easy", "medium", "hard"},
			},
		},
		Required: []string{"title", "subject", "topic", "difficulty"},
	}
}

func quizSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {Type: genai.TypeString},
						"options": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"answer":      {Type: genai.TypeInteger},
						"explanation": {Type: genai.TypeString},
					},
					Required: []string{"question", "options", "answer"},
				},
			},
		},
		Required: []string{"questions"},
	}
}

func slideDeckSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
			"slides": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"heading": {Type: genai.TypeString},
						"bullets": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"image_prompt": {Type: genai.TypeString},
					},
					Required: []string{"heading", "bullets", "image_prompt"},
				},
			},
		},
		Required: []string{"title", "slides"},
	}
}

func videoScriptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
			"scenes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"narration":    {Type: genai.TypeString},
						"image_prompt": {Type: genai.TypeString},
					},
					Required: []string{"narration", "image_prompt"},
				},
			},
		},
		Required: []string{"title", "scenes"},
	}
}
