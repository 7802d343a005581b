// Package generator produces custom quizzes on demand, either through the
// backend or directly from an LLM provider.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/edulearn/edulearn/internal/domain"
)

const (
	// XPReward is the reward of every generated quiz
	XPReward = 100

	// MaxQuestions caps the number of questions kept from a response
	MaxQuestions = 10
)

// Generator produces a generated quiz for a topic and difficulty
type Generator interface {
	Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error)
}

// QuizSource is the backend endpoint that builds custom quizzes
type QuizSource interface {
	GenerateQuiz(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error)
}

// Backend delegates generation to the backend
type Backend struct {
	source QuizSource
}

// NewBackend creates a generator backed by the backend custom-quiz endpoint
func NewBackend(source QuizSource) *Backend {
	return &Backend{source: source}
}

func (b *Backend) Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	topic, err := normalizeTopic(topic)
	if err != nil {
		return nil, err
	}

	quiz, err := b.source.GenerateQuiz(ctx, topic, difficulty)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	quiz.ID = nil
	quiz.Generated = true
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	return quiz, nil
}

func normalizeTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", domain.ErrEmptyTopic
	}
	return topic, nil
}

func newGeneratedQuiz(topic string, difficulty domain.Difficulty) *domain.Quiz {
	return &domain.Quiz{
		Title:       "Custom Quiz: " + topic,
		Description: fmt.Sprintf("AI-generated %s level quiz on %s", difficulty.Level(), topic),
		XPReward:    XPReward,
		Generated:   true,
	}
}
