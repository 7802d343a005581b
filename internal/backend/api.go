package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/edulearn/edulearn/internal/domain"
)

// generatedQuizID marks quizzes the backend built on the fly
const generatedQuizID = -1

type quizDTO struct {
	ID          *int64        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	XPReward    int           `json:"xpReward"`
	Questions   []questionDTO `json:"questions"`
}

type questionDTO struct {
	ID           int64       `json:"id"`
	QuestionText string      `json:"questionText"`
	Options      []optionDTO `json:"options"`
}

type optionDTO struct {
	ID         int64  `json:"id"`
	OptionText string `json:"optionText"`
	IsCorrect  *bool  `json:"isCorrect"`
}

func (q *quizDTO) toDomain(generated bool) *domain.Quiz {
	quiz := &domain.Quiz{
		Title:       q.Title,
		Description: q.Description,
		XPReward:    q.XPReward,
		Generated:   generated,
		Questions:   make([]domain.Question, 0, len(q.Questions)),
	}
	if q.ID != nil && *q.ID != generatedQuizID && !generated {
		quiz.ID = domain.Int64Ptr(*q.ID)
	}
	for _, question := range q.Questions {
		dq := domain.Question{
			ID:      question.ID,
			Text:    question.QuestionText,
			Options: make([]domain.Option, 0, len(question.Options)),
		}
		for _, opt := range question.Options {
			o := domain.Option{ID: opt.ID, Text: opt.OptionText}
			if generated && opt.IsCorrect != nil {
				o.Correct = domain.BoolPtr(*opt.IsCorrect)
			}
			dq.Options = append(dq.Options, o)
		}
		quiz.Questions = append(quiz.Questions, dq)
	}
	return quiz
}

// AnswerSubmission is one selected option in an attempt submission
type AnswerSubmission struct {
	QuestionID       int64 `json:"questionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
}

type attemptRequest struct {
	QuizID  int64              `json:"quizId"`
	Answers []AnswerSubmission `json:"answers"`
}

// AttemptResult is the backend's grading of a catalog attempt
type AttemptResult struct {
	AttemptID   int64   `json:"attemptId"`
	QuizTitle   string  `json:"quizTitle"`
	Score       int     `json:"score"`
	TotalMarks  int     `json:"totalMarks"`
	XPEarned    int     `json:"xpEarned"`
	Percentage  float64 `json:"percentage"`
	Status      string  `json:"status"`
	AttemptedAt string  `json:"attemptedAt"`
}

// ScorePercent returns the attempt score on the 0..100 scale
func (r *AttemptResult) ScorePercent() int {
	return int(math.Round(r.Percentage))
}

type profileDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

func (p *profileDTO) toDomain() *domain.ProfileSnapshot {
	return &domain.ProfileSnapshot{Username: p.Username, XP: p.XP}
}

// GetQuiz fetches a catalog quiz. Correctness flags are never kept.
func (c *Client) GetQuiz(ctx context.Context, id int64) (*domain.Quiz, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/student/quizzes/%d", id), nil, true)
	if err != nil {
		return nil, err
	}

	var dto quizDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}

	quiz := dto.toDomain(false)
	if quiz.ID == nil {
		quiz.ID = domain.Int64Ptr(id)
	}
	return quiz, nil
}

// SubmitAttempt sends a catalog attempt for grading. Never retried.
func (c *Client) SubmitAttempt(ctx context.Context, quizID int64, answers []AnswerSubmission) (*AttemptResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/student/quiz-attempts", attemptRequest{QuizID: quizID, Answers: answers}, false)
	if err != nil {
		return nil, err
	}

	var result AttemptResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode attempt result: %w", err)
	}
	return &result, nil
}

// GenerateQuiz asks the backend to build a custom quiz
func (c *Client) GenerateQuiz(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	req := map[string]string{"topic": topic, "difficulty": string(difficulty)}
	body, err := c.do(ctx, http.MethodPost, "/student/custom-quiz", req, true)
	if err != nil {
		return nil, err
	}

	var dto quizDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode generated quiz: %w", err)
	}
	return dto.toDomain(true), nil
}

// CompleteCustomQuiz records a locally scored attempt and returns the
// updated profile. Never retried.
func (c *Client) CompleteCustomQuiz(ctx context.Context, score, xpEarned int) (*domain.ProfileSnapshot, error) {
	req := map[string]int{"score": score, "xpEarned": xpEarned}
	body, err := c.do(ctx, http.MethodPost, "/student/custom-quiz-complete", req, false)
	if err != nil {
		return nil, err
	}

	var dto profileDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return dto.toDomain(), nil
}

// Profile fetches the current user's profile
func (c *Client) Profile(ctx context.Context) (*domain.ProfileSnapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/student/profile", nil, true)
	if err != nil {
		return nil, err
	}

	var dto profileDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return dto.toDomain(), nil
}
