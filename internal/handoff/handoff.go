// Package handoff holds a generated quiz between the generation step and
// the start of an attempt. A slot is read at most once.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/storage/local"
)

const collection = "handoff"

// MaxAge is how long a generated quiz waits in a slot before it is pruned
const MaxAge = 24 * time.Hour

// ErrInvalidTabID is returned when a tab id cannot be used as a slot key
var ErrInvalidTabID = errors.New("invalid tab id")

// ValidTabID reports whether id is safe to use as a file name:
// 1 to 128 characters of letters, digits, '-' or '_'.
func ValidTabID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Slot is a single-use holder for a generated quiz
type Slot interface {
	Put(ctx context.Context, quiz *domain.Quiz) error

	// TakeIfPresent returns the stored quiz and clears the slot.
	// A missing or unreadable entry reports ok=false.
	TakeIfPresent(ctx context.Context) (*domain.Quiz, bool, error)
}

// Memory is an in-process Slot
type Memory struct {
	mu   sync.Mutex
	quiz *domain.Quiz
}

// NewMemory creates an empty in-memory slot
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Put(_ context.Context, quiz *domain.Quiz) error {
	if quiz == nil {
		return fmt.Errorf("put handoff: %w", domain.ErrInvalidQuiz)
	}
	m.mu.Lock()
	m.quiz = quiz.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) TakeIfPresent(_ context.Context) (*domain.Quiz, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quiz == nil {
		return nil, false, nil
	}
	q := m.quiz
	m.quiz = nil
	return q, true, nil
}

// Store keeps one hand-off slot per browser tab on disk so the cached copy
// survives a daemon restart.
type Store struct {
	files *local.Store
}

// NewStore creates a tab-scoped hand-off store over a local JSON store
func NewStore(files *local.Store) *Store {
	return &Store{files: files}
}

// Prune drops slots that were never taken within maxAge. Every CLI
// process and MCP connection uses a fresh tab id, so unclaimed slots are
// otherwise never read again.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	n, err := s.files.Prune(collection, maxAge)
	if err != nil {
		return n, fmt.Errorf("prune handoff: %w", err)
	}
	return n, nil
}

// Scope returns the slot for one tab
func (s *Store) Scope(tabID string) Slot {
	return &tabSlot{files: s.files, tabID: tabID}
}

type tabSlot struct {
	files *local.Store
	tabID string
}

func (t *tabSlot) Put(_ context.Context, quiz *domain.Quiz) error {
	if quiz == nil {
		return fmt.Errorf("put handoff: %w", domain.ErrInvalidQuiz)
	}
	if !ValidTabID(t.tabID) {
		return fmt.Errorf("put handoff: %w", ErrInvalidTabID)
	}
	if err := t.files.Save(collection, t.tabID, quiz); err != nil {
		return fmt.Errorf("put handoff: %w", err)
	}
	return nil
}

func (t *tabSlot) TakeIfPresent(_ context.Context) (*domain.Quiz, bool, error) {
	if !ValidTabID(t.tabID) {
		return nil, false, nil
	}

	var quiz domain.Quiz
	err := t.files.Take(collection, t.tabID, &quiz)
	switch {
	case err == nil:
		return &quiz, true, nil
	case errors.Is(err, local.ErrNotFound):
		return nil, false, nil
	case errors.Is(err, local.ErrCorrupt):
		slog.Warn("discarded unreadable handoff entry", "tab_id", t.tabID, "error", err)
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("take handoff: %w", err)
	}
}
