// Package scoring grades a completed attempt. Catalog quizzes are graded
// by the backend; generated quizzes are graded locally and then recorded.
package scoring

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/backend"
	"github.com/edulearn/edulearn/internal/domain"
)

// Engine grades one attempt
type Engine interface {
	Strategy() domain.ScoringStrategy
	Submit(ctx context.Context, quiz *domain.Quiz, answers domain.AnswerMap) (*domain.AttemptResult, error)
}

// Grader is the backend grading endpoint for catalog quizzes
type Grader interface {
	SubmitAttempt(ctx context.Context, quizID int64, answers []backend.AnswerSubmission) (*backend.AttemptResult, error)
}

// Recorder is the backend endpoint that records a locally scored attempt
type Recorder interface {
	CompleteCustomQuiz(ctx context.Context, score, xpEarned int) (*domain.ProfileSnapshot, error)
}

// Engines selects the engine for a quiz
type Engines struct {
	Remote Engine
	Local  Engine
}

// ForQuiz returns the local engine for generated quizzes and the remote
// engine for catalog quizzes
func (e Engines) ForQuiz(generated bool) Engine {
	if generated {
		return e.Local
	}
	return e.Remote
}

// Remote submits catalog attempts to the backend. It never retries and
// never clears the caller's answers.
type Remote struct {
	grader Grader
	now    func() time.Time
}

// NewRemote creates a remote scoring engine
func NewRemote(grader Grader) *Remote {
	return &Remote{grader: grader, now: time.Now}
}

func (r *Remote) Strategy() domain.ScoringStrategy { return domain.StrategyRemote }

func (r *Remote) Submit(ctx context.Context, quiz *domain.Quiz, answers domain.AnswerMap) (*domain.AttemptResult, error) {
	if quiz.ID == nil {
		return nil, fmt.Errorf("remote scoring: %w: catalog quiz without id", domain.ErrInvalidQuiz)
	}

	// Question order, not map order
	submission := make([]backend.AnswerSubmission, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		optionID, ok := answers[q.ID]
		if !ok {
			return nil, domain.ErrIncompleteAttempt
		}
		submission = append(submission, backend.AnswerSubmission{QuestionID: q.ID, SelectedOptionID: optionID})
	}

	graded, err := r.grader.SubmitAttempt(ctx, *quiz.ID, submission)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}

	attemptID := uuid.NewString()
	if graded.AttemptID != 0 {
		attemptID = strconv.FormatInt(graded.AttemptID, 10)
	}

	return &domain.AttemptResult{
		AttemptID:   attemptID,
		QuizID:      domain.Int64Ptr(*quiz.ID),
		Score:       graded.ScorePercent(),
		XPEarned:    graded.XPEarned,
		Strategy:    domain.StrategyRemote,
		Recorded:    true,
		SubmittedAt: r.now(),
	}, nil
}

// Local grades generated quizzes against their correctness flags and then
// records score and XP with the backend.
type Local struct {
	recorder Recorder
	now      func() time.Time
}

// NewLocal creates a local scoring engine
func NewLocal(recorder Recorder) *Local {
	return &Local{recorder: recorder, now: time.Now}
}

func (l *Local) Strategy() domain.ScoringStrategy { return domain.StrategyLocal }

// Submit scores the attempt. When recording fails the computed result is
// still returned, with Recorded=false, alongside an error wrapping
// domain.ErrSubmissionFailed.
func (l *Local) Submit(ctx context.Context, quiz *domain.Quiz, answers domain.AnswerMap) (*domain.AttemptResult, error) {
	score, xp, err := Score(quiz, answers)
	if err != nil {
		return nil, err
	}

	result := &domain.AttemptResult{
		AttemptID:   uuid.NewString(),
		Score:       score,
		XPEarned:    xp,
		Strategy:    domain.StrategyLocal,
		SubmittedAt: l.now(),
	}

	profile, err := l.recorder.CompleteCustomQuiz(ctx, score, xp)
	if err != nil {
		return result, fmt.Errorf("%w: record completion: %v", domain.ErrSubmissionFailed, err)
	}

	result.Recorded = true
	result.Profile = profile
	return result, nil
}

// Score computes the percentage score and XP of a generated quiz attempt:
// score = round(100*correct/n), xp = round(reward*score/100), with halves
// rounded up. Every question must be answered.
func Score(quiz *domain.Quiz, answers domain.AnswerMap) (score, xp int, err error) {
	n := len(quiz.Questions)
	if n == 0 {
		return 0, 0, fmt.Errorf("local scoring: %w: no questions", domain.ErrInvalidQuiz)
	}

	correct := 0
	for _, q := range quiz.Questions {
		optionID, ok := answers[q.ID]
		if !ok {
			return 0, 0, domain.ErrIncompleteAttempt
		}
		opt, ok := q.Option(optionID)
		if !ok {
			continue
		}
		if opt.Correct == nil {
			return 0, 0, fmt.Errorf("local scoring: %w: question %d has no correctness flags", domain.ErrInvalidQuiz, q.ID)
		}
		if *opt.Correct {
			correct++
		}
	}

	score = roundHalfUp(100*correct, n)
	xp = roundHalfUp(quiz.XPReward*score, 100)
	return score, xp, nil
}

// roundHalfUp returns num/den rounded to the nearest integer, halves up.
// num must be non-negative and den positive.
func roundHalfUp(num, den int) int {
	return (2*num + den) / (2 * den)
}
