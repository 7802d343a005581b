package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/edulearn/edulearn/internal/domain"
)

var errNoQuestions = errors.New("no usable questions in response")

type rawQuiz struct {
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct"`
}

// extractJSON strips markdown fences and leading prose around a JSON object
func extractJSON(text string) string {
	s := strings.TrimSpace(text)

	if start := strings.Index(s, "```json"); start >= 0 {
		start += len("```json")
		if end := strings.Index(s[start:], "```"); end > 0 {
			s = strings.TrimSpace(s[start : start+end])
		}
	} else if start := strings.Index(s, "```"); start >= 0 {
		start += len("```")
		if end := strings.Index(s[start:], "```"); end > 0 {
			s = strings.TrimSpace(s[start : start+end])
		}
	}

	if !strings.HasPrefix(s, "{") {
		if i := strings.Index(s, "{"); i >= 0 {
			s = s[i:]
		}
	}
	if i := strings.LastIndex(s, "}"); i >= 0 {
		s = s[:i+1]
	}
	return s
}

// parseQuiz turns model output into a generated quiz. Questions with no
// text, fewer than two options, or a correct index out of range are
// skipped. At most MaxQuestions are kept; ids are sequential from 1.
func parseQuiz(text, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	var raw rawQuiz
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse quiz json: %w", err)
	}

	quiz := newGeneratedQuiz(topic, difficulty)
	for _, rq := range raw.Questions {
		if len(quiz.Questions) == MaxQuestions {
			break
		}

		q, ok := buildQuestion(int64(len(quiz.Questions)+1), rq)
		if !ok {
			continue
		}
		quiz.Questions = append(quiz.Questions, q)
	}

	if len(quiz.Questions) == 0 {
		return nil, errNoQuestions
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return quiz, nil
}

func buildQuestion(id int64, rq rawQuestion) (domain.Question, bool) {
	text := strings.TrimSpace(rq.Question)
	if text == "" || len(rq.Options) < 2 {
		return domain.Question{}, false
	}

	correct := 0
	if rq.Correct != nil {
		correct = *rq.Correct
	}
	if correct < 0 || correct >= len(rq.Options) {
		return domain.Question{}, false
	}

	q := domain.Question{
		ID:      id,
		Text:    text,
		Options: make([]domain.Option, 0, len(rq.Options)),
	}
	for j, opt := range rq.Options {
		q.Options = append(q.Options, domain.Option{
			ID:      int64(j + 1),
			Text:    opt,
			Correct: domain.BoolPtr(j == correct),
		})
	}
	return q, true
}
