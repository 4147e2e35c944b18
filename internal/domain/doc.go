// Package domain contains the core entities of the study-assistant
// application: study sets submitted by users, the structured documents
// generated from them (quizzes, slide decks, video scripts, diagrams), and
// their validation rules. Entities are created through constructors that
// validate on creation; persistence and generation live in other packages.
package domain
