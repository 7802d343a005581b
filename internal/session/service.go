package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/generator"
	"github.com/edulearn/edulearn/internal/handoff"
	"github.com/edulearn/edulearn/internal/scoring"
)

// Service manages quiz-taking sessions
type Service struct {
	store      *Store
	resolver   *Resolver
	engines    scoring.Engines
	reconciler Reconciler
	generator  generator.Generator // Optional: enables Generate
	slots      Slots               // Optional: tab-scoped hand-off cache
	logger     *slog.Logger
}

// NewService creates a new session service
func NewService(store *Store, resolver *Resolver, engines scoring.Engines, reconciler Reconciler) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		engines:    engines,
		reconciler: reconciler,
		logger:     slog.Default(),
	}
}

// SetGenerator enables quiz generation. Generated quizzes are cached in
// slots when a tab id is given.
func (s *Service) SetGenerator(g generator.Generator, slots Slots) {
	s.generator = g
	s.slots = slots
}

// SetLogger sets the logger used for best-effort side effects
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Generate produces a quiz for topic and difficulty. The returned quiz
// includes correctness flags so it can be handed to Start directly.
func (s *Service) Generate(ctx context.Context, tabID, topic, difficulty string) (*domain.Quiz, error) {
	if s.generator == nil {
		return nil, errors.New("quiz generation not configured")
	}
	if tabID != "" && !handoff.ValidTabID(tabID) {
		return nil, handoff.ErrInvalidTabID
	}

	level, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	quiz, err := s.generator.Generate(ctx, topic, level)
	if err != nil {
		return nil, err
	}

	if tabID != "" && s.slots != nil {
		if err := s.slots.Scope(tabID).Put(ctx, quiz); err != nil {
			s.logger.Warn("failed to cache generated quiz", "tab_id", tabID, "error", err)
		}
	}

	return quiz, nil
}

// StartRequest contains data for starting an attempt
type StartRequest struct {
	TabID  string
	QuizID *int64
	Quiz   *domain.Quiz
}

// Start resolves the quiz and opens a session on it
func (s *Service) Start(ctx context.Context, req StartRequest) (*View, error) {
	resolved, err := s.resolver.Resolve(ctx, Source{
		Handoff: req.Quiz,
		TabID:   req.TabID,
		QuizID:  req.QuizID,
	})
	if err != nil {
		return nil, err
	}

	engine := s.engines.ForQuiz(resolved.Generated)
	session := NewSession(req.TabID, resolved, engine)
	s.store.Save(session)

	s.logger.Info("session started",
		"session_id", session.ID,
		"generated", resolved.Generated,
		"strategy", engine.Strategy(),
		"questions", resolved.Quiz.QuestionCount())

	return session.View(), nil
}

// Get retrieves a session view by ID
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return session.View(), nil
}

// List returns views of the sessions that have not ended
func (s *Service) List(ctx context.Context) []*View {
	active := s.store.ListActive()
	views := make([]*View, 0, len(active))
	for _, session := range active {
		views = append(views, session.View())
	}
	return views
}

// Select records an answer
func (s *Service) Select(ctx context.Context, id string, questionID, optionID int64) (*View, error) {
	return s.apply(id, func(session *Session) error {
		return session.Select(questionID, optionID)
	})
}

// Next moves to the next question
func (s *Service) Next(ctx context.Context, id string) (*View, error) {
	return s.apply(id, (*Session).Next)
}

// Previous moves to the previous question
func (s *Service) Previous(ctx context.Context, id string) (*View, error) {
	return s.apply(id, (*Session).Previous)
}

// JumpTo moves to the question at index
func (s *Service) JumpTo(ctx context.Context, id string, index int) (*View, error) {
	return s.apply(id, func(session *Session) error {
		return session.JumpTo(index)
	})
}

// Submit grades the attempt and, once the backend has recorded it,
// reconciles XP into the profile
func (s *Service) Submit(ctx context.Context, id string) (*View, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	result, err := session.Submit(ctx)
	if err != nil {
		s.logger.Warn("submission failed", "session_id", id, "error", err)
		if result != nil {
			return session.View(), err
		}
		return nil, err
	}

	if _, err := s.reconciler.Reconcile(ctx, result); err != nil {
		s.logger.Warn("failed to reconcile attempt", "session_id", id, "attempt_id", result.AttemptID, "error", err)
	}

	s.logger.Info("session completed",
		"session_id", id,
		"attempt_id", result.AttemptID,
		"score", result.Score,
		"xp_earned", result.XPEarned)

	return session.View(), nil
}

// Abandon ends the attempt without scoring
func (s *Service) Abandon(ctx context.Context, id string) (*View, error) {
	return s.apply(id, (*Session).Abandon)
}

// Delete abandons a session if needed and removes it
func (s *Service) Delete(ctx context.Context, id string) error {
	session, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := session.Abandon(); err != nil && !errors.Is(err, domain.ErrAlreadySubmitted) {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Service) apply(id string, op func(*Session) error) (*View, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := op(session); err != nil {
		return nil, err
	}
	return session.View(), nil
}

func (s *Service) lookup(id string) (*Session, error) {
	session, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, err
	}
	return session, nil
}
