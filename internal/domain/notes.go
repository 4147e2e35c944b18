package domain

import "errors"

// NoteLevel selects how detailed generated notes should be.
type NoteLevel string

// Permitted note detail levels.
const (
	NoteLevelBrief         NoteLevel = "brief"
	NoteLevelDetailed      NoteLevel = "detailed"
	NoteLevelComprehensive NoteLevel = "comprehensive"
)

// ErrInvalidNoteLevel is returned for an unrecognized note detail level.
var ErrInvalidNoteLevel = errors.New("invalid note level")

// ParseNoteLevel validates a note level string from an API request.
func ParseNoteLevel(s string) (NoteLevel, error) {
	switch NoteLevel(s) {
	case NoteLevelBrief, NoteLevelDetailed, NoteLevelComprehensive:
		return NoteLevel(s), nil
	default:
		return "", ErrInvalidNoteLevel
	}
}
