package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/scoring"
)

// Status represents the attempt state
type Status string

const (
	StatusActive     Status = "active"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Session is one quiz-taking attempt. All methods are safe for concurrent
// use; a submission holds the submitting status, not the lock, while the
// engine runs.
type Session struct {
	ID        string
	TabID     string
	CreatedAt time.Time

	mu         sync.Mutex
	quiz       *domain.Quiz
	generated  bool
	tracker    *Tracker
	nav        *Navigator
	engine     scoring.Engine
	status     Status
	result     *domain.AttemptResult
	lastErr    string
	attemptKey string
	updatedAt  time.Time

	now func() time.Time
}

// NewSession creates an active session over a resolved quiz
func NewSession(tabID string, resolved *Resolved, engine scoring.Engine) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		TabID:      tabID,
		CreatedAt:  now,
		quiz:       resolved.Quiz,
		generated:  resolved.Generated,
		tracker:    NewTracker(),
		nav:        NewNavigator(resolved.Quiz.QuestionCount()),
		engine:     engine,
		status:     StatusActive,
		attemptKey: uuid.New().String(),
		updatedAt:  now,
		now:        time.Now,
	}
}

// View is the client-facing state of a session. The quiz never carries
// correctness flags.
type View struct {
	ID            string                 `json:"id"`
	Status        Status                 `json:"status"`
	Strategy      domain.ScoringStrategy `json:"strategy"`
	Generated     bool                   `json:"generated"`
	Quiz          *domain.Quiz           `json:"quiz"`
	Current       int                    `json:"current"`
	Total         int                    `json:"total"`
	Progress      int                    `json:"progress"`
	HasNext       bool                   `json:"has_next"`
	HasPrevious   bool                   `json:"has_previous"`
	IsLast        bool                   `json:"is_last"`
	Answers       domain.AnswerMap       `json:"answers"`
	AnsweredCount int                    `json:"answered_count"`
	CanSubmit     bool                   `json:"can_submit"`
	Result        *domain.AttemptResult  `json:"result,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// View returns a snapshot of the session
func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() *View {
	v := &View{
		ID:            s.ID,
		Status:        s.status,
		Strategy:      s.engine.Strategy(),
		Generated:     s.generated,
		Quiz:          s.quiz.Redacted(),
		Current:       s.nav.Current(),
		Total:         s.nav.Total(),
		Progress:      s.nav.Progress(),
		HasNext:       s.nav.HasNext(),
		HasPrevious:   s.nav.HasPrevious(),
		IsLast:        s.nav.IsLast(),
		Answers:       s.tracker.Snapshot(),
		AnsweredCount: s.tracker.AnsweredCount(),
		CanSubmit:     s.status == StatusActive && s.tracker.IsComplete(s.quiz),
		LastError:     s.lastErr,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.updatedAt,
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}

// Status returns the current status
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CanSubmit reports whether every question has an answer
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusActive && s.tracker.IsComplete(s.quiz)
}

// Select records an answer. Question and option must belong to the quiz.
func (s *Session) Select(questionID, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		return err
	}

	q, ok := s.quiz.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownQuestion, questionID)
	}
	if _, ok := q.Option(optionID); !ok {
		return fmt.Errorf("%w: option %d, question %d", domain.ErrUnknownOption, optionID, questionID)
	}

	s.tracker.Select(questionID, optionID)
	s.touchLocked()
	return nil
}

// Next moves to the next question
func (s *Session) Next() error {
	return s.navigate(func(n *Navigator) error { n.Next(); return nil })
}

// Previous moves to the previous question
func (s *Session) Previous() error {
	return s.navigate(func(n *Navigator) error { n.Previous(); return nil })
}

// JumpTo moves to the question at index
func (s *Session) JumpTo(index int) error {
	return s.navigate(func(n *Navigator) error { return n.JumpTo(index) })
}

func (s *Session) navigate(move func(*Navigator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusAbandoned {
		return domain.ErrSessionNotActive
	}
	if err := move(s.nav); err != nil {
		return err
	}
	s.touchLocked()
	return nil
}

// Submit grades the attempt once. On failure the session returns to active
// with its answers intact so the caller can retry. A local result whose
// recording failed is kept for display and returned with the error.
func (s *Session) Submit(ctx context.Context) (*domain.AttemptResult, error) {
	quiz, answers, engine, err := s.beginSubmit()
	if err != nil {
		return nil, err
	}

	result, err := engine.Submit(ctx, quiz, answers)
	if result != nil && engine.Strategy() == domain.StrategyLocal {
		// Resubmits that only retry recording must reconcile under one key.
		result.AttemptID = s.attemptKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err != nil {
		s.status = StatusActive
		s.lastErr = err.Error()
		if result != nil {
			r := *result
			s.result = &r
		}
		return result, err
	}

	r := *result
	s.result = &r
	s.lastErr = ""
	s.status = StatusCompleted
	s.tracker.Reset()
	return result, nil
}

func (s *Session) beginSubmit() (*domain.Quiz, domain.AnswerMap, scoring.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		return nil, nil, nil, err
	}
	if !s.tracker.IsComplete(s.quiz) {
		return nil, nil, nil, domain.ErrIncompleteAttempt
	}

	s.status = StatusSubmitting
	s.touchLocked()
	return s.quiz.Clone(), s.tracker.Snapshot(), s.engine, nil
}

// Abandon ends the attempt without scoring and discards the answers
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusSubmitting:
		return domain.ErrSubmissionInFlight
	case StatusCompleted:
		return domain.ErrAlreadySubmitted
	case StatusAbandoned:
		return nil
	}

	s.status = StatusAbandoned
	s.tracker.Reset()
	s.touchLocked()
	return nil
}

func (s *Session) checkWritableLocked() error {
	switch s.status {
	case StatusSubmitting:
		return domain.ErrSubmissionInFlight
	case StatusCompleted:
		return domain.ErrAlreadySubmitted
	case StatusAbandoned:
		return domain.ErrSessionNotActive
	}
	return nil
}

func (s *Session) touchLocked() {
	s.updatedAt = s.now()
}
