package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the requested level of a generated quiz
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ParseDifficulty normalizes user input into a Difficulty
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyMedium:
		return DifficultyMedium, nil
	case DifficultyHard:
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Level returns the lowercase label used in generated titles and prompts
func (d Difficulty) Level() string {
	return strings.ToLower(string(d))
}

// Quiz is a resolved quiz held by an attempt session.
// ID is nil for generated quizzes, which never reach the catalog.
type Quiz struct {
	ID          *int64     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	XPReward    int        `json:"xpReward"`
	Questions   []Question `json:"questions"`
	Generated   bool       `json:"generated,omitempty"`
}

// Question is a single multiple-choice question
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"questionText"`
	Options []Option `json:"options"`
}

// Option is one selectable answer. Correct is only populated on
// generated quizzes; catalog quizzes are graded by the backend.
type Option struct {
	ID      int64  `json:"id"`
	Text    string `json:"optionText"`
	Correct *bool  `json:"isCorrect,omitempty"`
}

// AnswerMap maps question ID to the selected option ID
type AnswerMap map[int64]int64

// Validate checks the structural invariants of a quiz
func (q *Quiz) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: nil quiz", ErrInvalidQuiz)
	}
	if q.XPReward < 0 {
		return fmt.Errorf("%w: negative xp reward %d", ErrInvalidQuiz, q.XPReward)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}

	seenQuestions := make(map[int64]bool, len(q.Questions))
	for _, question := range q.Questions {
		if seenQuestions[question.ID] {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidQuiz, question.ID)
		}
		seenQuestions[question.ID] = true

		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuiz, question.ID, len(question.Options))
		}

		seenOptions := make(map[int64]bool, len(question.Options))
		for _, opt := range question.Options {
			if seenOptions[opt.ID] {
				return fmt.Errorf("%w: duplicate option id %d in question %d", ErrInvalidQuiz, opt.ID, question.ID)
			}
			seenOptions[opt.ID] = true

			if q.Generated && opt.Correct == nil {
				return fmt.Errorf("%w: generated question %d option %d has no correctness flag", ErrInvalidQuiz, question.ID, opt.ID)
			}
		}
	}

	return nil
}

// QuestionCount returns the number of questions
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

// QuestionIDs returns question identifiers in quiz order
func (q *Quiz) QuestionIDs() []int64 {
	ids := make([]int64, len(q.Questions))
	for i, question := range q.Questions {
		ids[i] = question.ID
	}
	return ids
}

// Question looks up a question by ID
func (q *Quiz) Question(id int64) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Option looks up an option by ID
func (q *Question) Option(id int64) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// Redacted returns a deep copy with every correctness flag removed
func (q *Quiz) Redacted() *Quiz {
	out := q.Clone()
	for i := range out.Questions {
		for j := range out.Questions[i].Options {
			out.Questions[i].Options[j].Correct = nil
		}
	}
	return out
}

// Clone returns a deep copy of the quiz
func (q *Quiz) Clone() *Quiz {
	out := *q
	if q.ID != nil {
		id := *q.ID
		out.ID = &id
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		cp := question
		cp.Options = make([]Option, len(question.Options))
		for j, opt := range question.Options {
			o := opt
			if opt.Correct != nil {
				c := *opt.Correct
				o.Correct = &c
			}
			cp.Options[j] = o
		}
		out.Questions[i] = cp
	}
	return &out
}

// BoolPtr is a helper for building correctness flags
func BoolPtr(b bool) *bool {
	return &b
}

// Int64Ptr is a helper for building catalog IDs
func Int64Ptr(v int64) *int64 {
	return &v
}
