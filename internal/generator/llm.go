package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/llm"
)

const systemPrompt = "You write multiple choice quiz questions for students. " +
	"Respond with a single JSON object and nothing else."

// LLM generates quizzes by prompting a language model
type LLM struct {
	provider      llm.Provider
	questionCount int
	logger        *slog.Logger
}

// NewLLM creates an LLM-backed generator asking for questionCount questions
func NewLLM(provider llm.Provider, questionCount int, logger *slog.Logger) *LLM {
	if questionCount <= 0 {
		questionCount = 3
	}
	if questionCount > MaxQuestions {
		questionCount = MaxQuestions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{provider: provider, questionCount: questionCount, logger: logger}
}

func buildPrompt(count int, topic string, difficulty domain.Difficulty) string {
	return fmt.Sprintf(
		"Create %d %s difficulty multiple choice questions about %s. "+
			`Return only this JSON format: {"questions": [{"question": "What is...", "options": ["answer1", "answer2", "answer3", "answer4"], "correct": 0}]} `+
			"Make questions specific to %s topic. Each question needs 4 different options with only 1 correct answer.",
		count, difficulty.Level(), topic, topic)
}

// Generate prompts the model and parses its answer. A failed call or an
// unusable answer yields the built-in quiz for the topic.
func (g *LLM) Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	topic, err := normalizeTopic(topic)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(ctx, &llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildPrompt(g.questionCount, topic, difficulty)}},
		MaxTokens:   2048,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("generate quiz: %w", ctx.Err())
		}
		g.logger.Warn("quiz generation call failed, using built-in quiz",
			"provider", g.provider.Name(), "topic", topic, "error", err)
		return Fallback(topic, difficulty), nil
	}

	quiz, err := parseQuiz(resp.Content, topic, difficulty)
	if err != nil {
		g.logger.Warn("unusable quiz from model, using built-in quiz",
			"provider", g.provider.Name(), "topic", topic, "error", err)
		return Fallback(topic, difficulty), nil
	}

	return quiz, nil
}
