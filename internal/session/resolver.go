package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edulearn/edulearn/internal/backend"
	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/handoff"
)

// Catalog loads catalog quizzes by id
type Catalog interface {
	GetQuiz(ctx context.Context, id int64) (*domain.Quiz, error)
}

// Slots returns the hand-off slot of a tab
type Slots interface {
	Scope(tabID string) handoff.Slot
}

// Source is everything a caller may offer to start an attempt
type Source struct {
	// Handoff is a generated quiz passed directly from the generation step
	Handoff *domain.Quiz

	// TabID selects the cached hand-off slot
	TabID string

	// QuizID selects a catalog quiz
	QuizID *int64
}

// Resolved is the quiz an attempt will run on
type Resolved struct {
	Quiz      *domain.Quiz
	Generated bool
}

// Resolver picks the quiz for a new attempt: direct hand-off first, then
// the catalog id when one is given, then the tab's cached hand-off.
type Resolver struct {
	catalog Catalog
	slots   Slots
	logger  *slog.Logger
}

// NewResolver creates a resolver. slots may be nil when no cache is kept.
func NewResolver(catalog Catalog, slots Slots, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, slots: slots, logger: logger}
}

// Resolve returns the quiz for src
func (r *Resolver) Resolve(ctx context.Context, src Source) (*Resolved, error) {
	if src.Handoff != nil {
		quiz := src.Handoff.Clone()
		quiz.Generated = true
		quiz.ID = nil
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
		return &Resolved{Quiz: quiz, Generated: true}, nil
	}

	// The cache only stands in for a missing id and is left alone otherwise
	if src.QuizID == nil {
		if quiz, ok := r.takeCached(ctx, src.TabID); ok {
			return &Resolved{Quiz: quiz, Generated: true}, nil
		}
		return nil, domain.ErrNoQuizSpecified
	}

	quiz, err := r.catalog.GetQuiz(ctx, *src.QuizID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return nil, fmt.Errorf("%w: %d", domain.ErrQuizNotFound, *src.QuizID)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizLoadFailed, err)
	}

	quiz.Generated = false
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizLoadFailed, err)
	}
	return &Resolved{Quiz: quiz, Generated: false}, nil
}

// takeCached reads and clears the tab's slot. Unreadable or invalid
// entries are dropped and reported as absent.
func (r *Resolver) takeCached(ctx context.Context, tabID string) (*domain.Quiz, bool) {
	if r.slots == nil || tabID == "" {
		return nil, false
	}

	quiz, ok, err := r.slots.Scope(tabID).TakeIfPresent(ctx)
	if err != nil {
		r.logger.Warn("failed to read cached quiz", "tab_id", tabID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	quiz.Generated = true
	quiz.ID = nil
	if err := quiz.Validate(); err != nil {
		r.logger.Warn("discarded invalid cached quiz", "tab_id", tabID, "error", err)
		return nil, false
	}
	return quiz, true
}
