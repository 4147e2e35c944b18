package gemini

import (
	"fmt"
	"unicode/utf8"

	"github.com/studykit/api/internal/domain"
)

// maxInputChars bounds how much source text is included in any prompt.
// Longer submissions are truncated, not rejected.
const maxInputChars = 8000

// truncateInput bounds the source text included in a prompt. The limit
// counts runes, never splitting a multibyte character.
func truncateInput(text string) string {
	if len(text) <= maxInputChars || utf8.RuneCountInString(text) <= maxInputChars {
		return text
	}
	return string([]rune(text)[:maxInputChars])
}

// noteLevelInstructions maps a note detail level to the instruction fragment
// embedded in the notes prompt.
var noteLevelInstructions = map[domain.NoteLevel]string{
	domain.NoteLevelBrief:         "Write brief revision notes: only the key terms and one-line definitions.",
	domain.NoteLevelDetailed:      "Write detailed study notes with headings, short paragraphs, and bullet points.",
	domain.NoteLevelComprehensive: "Write comprehensive study notes covering every concept, with headings, explanations, examples, and a closing summary.",
}

func metadataPrompt(text string) string {
	return fmt.Sprintf(`You are a study assistant. Read the study material below and suggest metadata for it.
Respond with a JSON object containing "title" (short, at most 60 characters), "subject", "topic", and "difficulty" (one of "easy", "medium", "hard").

Study material:
%s`, truncateInput(text))
}

func summaryPrompt(text string) string {
	return fmt.Sprintf(`Summarize the following study material in at most three short paragraphs aimed at a student revising the topic. Respond with the summary only.

Study material:
%s`, truncateInput(text))
}

func explanationPrompt(text string) string {
	return fmt.Sprintf(`Explain the following study material in plain language, as if teaching it to a beginner. Use short sentences and everyday analogies. Respond with the explanation only.

Study material:
%s`, truncateInput(text))
}

func notesPrompt(text string, level domain.NoteLevel) string {
	instruction, ok := noteLevelInstructions[level]
	if !ok {
		instruction = noteLevelInstructions[domain.NoteLevelDetailed]
	}
	return fmt.Sprintf(`%s Format the notes as Markdown.

Study material:
%s`, instruction, truncateInput(text))
}

func quizPrompt(text string, questionCount int, difficulty domain.Difficulty) string {
	return fmt.Sprintf(`Create a multiple-choice quiz with exactly %d questions at %s difficulty from the study material below.
Each question must have exactly four options, the zero-based index of the correct option, and a one-sentence explanation.

Study material:
%s`, questionCount, difficulty, truncateInput(text))
}

func feedbackPrompt(score, total int, topic string) string {
	return fmt.Sprintf(`A student scored %d out of %d on a quiz about "%s".
Write two or three sentences of encouraging, specific feedback: acknowledge the result, name what the score suggests, and recommend one next step. Respond with the feedback only.`,
		score, total, topic)
}

func slideDeckPrompt(text string) string {
	return fmt.Sprintf(`Create a slide deck outline from the study material below: a deck title and 5 to 8 slides.
Each slide needs a heading, 2 to 4 bullet points, and an "image_prompt": a vivid one-sentence description of an illustrative image for the slide.

Study material:
%s`, truncateInput(text))
}

func videoScriptPrompt(text string) string {
	return fmt.Sprintf(`Write a short educational video script from the study material below: a title and 4 to 6 scenes.
Each scene needs two or three sentences of narration and an "image_prompt": a vivid one-sentence description of the visual shown during the scene.

Study material:
%s`, truncateInput(text))
}

func diagramPrompt(text string) string {
	return fmt.Sprintf(`Create a Mermaid flowchart describing the main concepts in the study material below and how they relate.
Use only "graph TD" or "graph LR" orientation, simple node and edge declarations, and no subgraphs. Respond with the Mermaid code only.

Study material:
%s`, truncateInput(text))
}
