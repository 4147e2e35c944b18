package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studykit/api/internal/config"
	"github.com/studykit/api/internal/domain"
	"github.com/studykit/api/internal/extract"
	"github.com/studykit/api/internal/generation"
	"github.com/studykit/api/internal/retry"
	"google.golang.org/genai"
)

// Default sampling parameters for text generation.
const (
	defaultTemperature float32 = 0.7
	defaultTopP        float32 = 0.95
	defaultTopK        float32 = 40
)

// Generator implements generation.Generator and generation.ImageGenerator
// using Google's Gemini API.
type Generator struct {
	logger *slog.Logger
	cfg    config.LLMConfig

	// client is nil when no API key is configured; every call then returns
	// generation.ErrMissingAPIKey without touching the network.
	client *genai.Client
}

// Interface conformance.
var (
	_ generation.Generator      = (*Generator)(nil)
	_ generation.ImageGenerator = (*Generator)(nil)
)

// NewGenerator creates a Gemini-backed generator. A missing API key is not
// an error: the returned generator runs in degraded mode and the service
// layer substitutes fallbacks. Model names must be configured.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}

	if cfg.TextModel == "" {
		return nil, fmt.Errorf("%w: text model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	g := &Generator{
		logger: logger.With(slog.String("component", "gemini_generator")),
		cfg:    cfg,
	}

	if cfg.GeminiAPIKey == "" {
		g.logger.Warn("no Gemini API key configured, generator running in degraded mode")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	g.client = client
	return g, nil
}

// generateText calls the text model under the retry policy and returns the
// raw response text. Rate limiting and temporary unavailability are retried
// with exponential backoff; everything else fails on the first attempt.
func (g *Generator) generateText(ctx context.Context, prompt string, genCfg *genai.GenerateContentConfig) (string, error) {
	if g.client == nil {
		return "", generation.ErrMissingAPIKey
	}

	policy := retry.Policy{
		MaxAttempts:  g.cfg.MaxRetries,
		InitialDelay: time.Duration(g.cfg.RetryDelaySeconds) * time.Second,
		OnRetry: func(attempt int, delay time.Duration) {
			g.logger.WarnContext(ctx, "transient model failure, retrying",
				"model", g.cfg.TextModel,
				"attempt", attempt,
				"delay", delay.String())
		},
	}

	text, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return g.callTextModel(ctx, prompt, genCfg)
	})
	if err != nil {
		return "", wrapTransient(err)
	}
	return text, nil
}

// wrapTransient tags rate-limit and unavailability errors with the shared
// transient sentinel, so callers can match errors.Is instead of inspecting
// provider error strings. Fatal errors pass through unchanged.
func wrapTransient(err error) error {
	if retry.IsTransient(err) {
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	return err
}

// callTextModel makes one call to the text model. Provider errors are
// wrapped with %w so their serialized form, and with it the transient/fatal
// markers, survives for retry classification.
func (g *Generator) callTextModel(ctx context.Context, prompt string, genCfg *genai.GenerateContentConfig) (string, error) {
	g.logger.DebugContext(ctx, "calling Gemini text model",
		"model", g.cfg.TextModel,
		"prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini text generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text", generation.ErrInvalidResponse)
	}

	return text, nil
}

// textConfig returns the sampling configuration for a free-form text call.
func (g *Generator) textConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr(defaultTemperature),
		TopP:        genai.Ptr(defaultTopP),
		TopK:        genai.Ptr(defaultTopK),
	}
}

// structuredConfig returns the configuration for a schema-constrained call.
func (g *Generator) structuredConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := g.textConfig()
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = schema
	return cfg
}

// decodeStructured extracts a JSON payload from model output and unmarshals
// it into out. A normalizer no-value result or a decode failure surfaces as
// generation.ErrInvalidResponse.
func (g *Generator) decodeStructured(text string, out any) error {
	raw, ok := extract.JSONValue(g.logger, text)
	if !ok {
		return fmt.Errorf("%w: no JSON payload in model output", generation.ErrInvalidResponse)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to decode structured output: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

// SuggestMetadata implements generation.Generator.
func (g *Generator) SuggestMetadata(ctx context.Context, text string) (*domain.Metadata, error) {
	response, err := g.generateText(ctx, metadataPrompt(text), g.structuredConfig(metadataSchema()))
	if err != nil {
		return nil, err
	}

	var meta domain.Metadata
	if err := g.decodeStructured(response, &meta); err != nil {
		return nil, err
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("%w: metadata missing title", generation.ErrInvalidResponse)
	}

	return &meta, nil
}

// Summarize implements generation.Generator.
func (g *Generator) Summarize(ctx context.Context, text string) (string, error) {
	return g.generateText(ctx, summaryPrompt(text), g.textConfig())
}

// Explain implements generation.Generator.
func (g *Generator) Explain(ctx context.Context, text string) (string, error) {
	return g.generateText(ctx, explanationPrompt(text), g.textConfig())
}

// GenerateNotes implements generation.Generator.
func (g *Generator) GenerateNotes(ctx context.Context, text string, level domain.NoteLevel) (string, error) {
	return g.generateText(ctx, notesPrompt(text, level), g.textConfig())
}

// GenerateQuiz implements generation.Generator.
func (g *Generator) GenerateQuiz(
	ctx context.Context,
	text string,
	questionCount int,
	difficulty domain.Difficulty,
) (*domain.Quiz, error) {
	response, err := g.generateText(ctx, quizPrompt(text, questionCount, difficulty), g.structuredConfig(quizSchema()))
	if err != nil {
		return nil, err
	}

	var quiz domain.Quiz
	if err := g.decodeStructured(response, &quiz); err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &quiz, nil
}

// GenerateFeedback implements generation.Generator.
func (g *Generator) GenerateFeedback(ctx context.Context, score, total int, topic string) (string, error) {
	return g.generateText(ctx, feedbackPrompt(score, total, topic), g.textConfig())
}

// GenerateSlideDeck implements generation.Generator.
func (g *Generator) GenerateSlideDeck(ctx context.Context, text string) (*domain.SlideDeck, error) {
	response, err := g.generateText(ctx, slideDeckPrompt(text), g.structuredConfig(slideDeckSchema()))
	if err != nil {
		return nil, err
	}

	var deck domain.SlideDeck
	if err := g.decodeStructured(response, &deck); err != nil {
		return nil, err
	}
	if err := deck.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &deck, nil
}

// GenerateVideoScript implements generation.Generator.
func (g *Generator) GenerateVideoScript(ctx context.Context, text string) (*domain.VideoScript, error) {
	response, err := g.generateText(ctx, videoScriptPrompt(text), g.structuredConfig(videoScriptSchema()))
	if err != nil {
		return nil, err
	}

	var script domain.VideoScript
	if err := g.decodeStructured(response, &script); err != nil {
		return nil, err
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &script, nil
}

// GenerateDiagram implements generation.Generator.
func (g *Generator) GenerateDiagram(ctx context.Context, text string) (string, error) {
	response, err := g.generateText(ctx, diagramPrompt(text), g.textConfig())
	if err != nil {
		return "", err
	}

	diagram, ok := extract.DiagramBlock(response)
	if !ok {
		g.logger.Warn("model output is not a permitted diagram",
			"response_length", len(response))
		return "", fmt.Errorf("%w: output is not a graph TD/LR diagram", generation.ErrInvalidResponse)
	}

	return diagram, nil
}
