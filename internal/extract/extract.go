package extract

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Diagram orientation declarations accepted by DiagramBlock. The rendering
// collaborator understands exactly these two Mermaid headers.
const (
	orientationTopDown   = "graph TD"
	orientationLeftRight = "graph LR"
)

// stripFence removes a surrounding Markdown code fence, optionally tagged
// with a language identifier, and returns the trimmed inner content. Text
// without a fence is returned trimmed and otherwise untouched.
func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	body := s[len("```"):]

	// Drop the language tag: everything up to the first newline.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		// Single-line fence such as ```{"a":1}```.
		body = strings.TrimSuffix(body, "```")
		return strings.TrimSpace(body)
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// JSONValue extracts a JSON object or array from model output. It strips a
// surrounding code fence, then parses; if parsing fails it applies one
// defensive repair for a known malformation class (a missing comma between
// adjacent object literals, `}{`) and parses again, wrapping the repaired
// text in an array when the objects were emitted bare. On failure the
// original text is logged for diagnosis and ok is false.
func JSONValue(logger *slog.Logger, text string) (json.RawMessage, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	candidate := stripFence(text)
	if candidate == "" {
		return nil, false
	}

	if raw, ok := parseJSON(candidate); ok {
		return raw, true
	}

	repaired := strings.ReplaceAll(candidate, "}{", "},{")
	if repaired != candidate {
		if raw, ok := parseJSON(repaired); ok {
			return raw, true
		}
		// Adjacent bare objects become a valid array once bracketed.
		if strings.HasPrefix(repaired, "{") && strings.HasSuffix(repaired, "}") {
			if raw, ok := parseJSON("[" + repaired + "]"); ok {
				return raw, true
			}
		}
	}

	logger.Warn("failed to extract JSON from model output",
		"response_text", text)
	return nil, false
}

// parseJSON accepts only JSON objects and arrays; scalars are not valid
// structured payloads.
func parseJSON(s string) (json.RawMessage, bool) {
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// DiagramBlock extracts a diagram description from model output. It strips a
// surrounding code fence and accepts the result only if it begins with one of
// the two permitted graph-orientation declarations. No further syntax
// validation happens here; rendering-time validation is the caller's concern.
func DiagramBlock(text string) (string, bool) {
	candidate := stripFence(text)
	if strings.HasPrefix(candidate, orientationTopDown) ||
		strings.HasPrefix(candidate, orientationLeftRight) {
		return candidate, true
	}
	return "", false
}
