package session

import "github.com/edulearn/edulearn/internal/domain"

// Tracker records the selected option per question. It does not check
// that ids exist; the session does that before calling Select.
type Tracker struct {
	answers domain.AnswerMap
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{answers: make(domain.AnswerMap)}
}

// Select sets or replaces the answer for a question
func (t *Tracker) Select(questionID, optionID int64) {
	t.answers[questionID] = optionID
}

// Answer returns the selected option for a question
func (t *Tracker) Answer(questionID int64) (int64, bool) {
	id, ok := t.answers[questionID]
	return id, ok
}

// AnsweredCount returns the number of answered questions
func (t *Tracker) AnsweredCount() int {
	return len(t.answers)
}

// IsComplete reports whether every question of quiz has an answer
func (t *Tracker) IsComplete(quiz *domain.Quiz) bool {
	for _, q := range quiz.Questions {
		if _, ok := t.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of the answers
func (t *Tracker) Snapshot() domain.AnswerMap {
	out := make(domain.AnswerMap, len(t.answers))
	for q, o := range t.answers {
		out[q] = o
	}
	return out
}

// Reset discards every answer
func (t *Tracker) Reset() {
	t.answers = make(domain.AnswerMap)
}
