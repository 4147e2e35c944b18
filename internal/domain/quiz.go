package domain

import "errors"

// QuestionOptionCount is the number of answer options every quiz question
// carries.
const QuestionOptionCount = 4

// Validation errors for Quiz.
var (
	ErrNoQuizQuestions     = errors.New("quiz must contain at least one question")
	ErrEmptyQuestionText   = errors.New("quiz question text cannot be empty")
	ErrWrongOptionCount    = errors.New("quiz question must have exactly four options")
	ErrAnswerOutOfRange    = errors.New("quiz answer index is out of range")
	ErrEmptyQuestionOption = errors.New("quiz option text cannot be empty")
)

// Question is a single multiple-choice quiz question. Answer is the index of
// the correct entry in Options.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is an ordered set of multiple-choice questions generated from source
// text.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// Validate checks structural validity of the quiz and each question.
func (q *Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrNoQuizQuestions
	}

	for _, question := range q.Questions {
		if question.Question == "" {
			return ErrEmptyQuestionText
		}
		if len(question.Options) != QuestionOptionCount {
			return ErrWrongOptionCount
		}
		for _, opt := range question.Options {
			if opt == "" {
				return ErrEmptyQuestionOption
			}
		}
		if question.Answer < 0 || question.Answer >= len(question.Options) {
			return ErrAnswerOutOfRange
		}
	}

	return nil
}
