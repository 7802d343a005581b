// Package profile keeps the locally observed copy of the user's profile
// and reconciles attempt results into it.
package profile

import (
	"sync"
	"time"

	"github.com/edulearn/edulearn/internal/domain"
)

// Change describes one write to the profile store
type Change struct {
	AttemptID string                 `json:"attempt_id,omitempty"`
	Strategy  domain.ScoringStrategy `json:"strategy,omitempty"`
	Previous  int                    `json:"previous"`
	XP        int                    `json:"xp"`
	Delta     int                    `json:"delta"`
	At        time.Time              `json:"at"`
}

// Store is the observable single-writer profile copy. Writes replace the
// whole snapshot under the lock; subscribers run after the lock is released.
type Store struct {
	mu       sync.RWMutex
	snapshot domain.ProfileSnapshot
	loaded   bool
	stale    bool

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int

	now func() time.Time
}

// NewStore creates an empty store. It is stale until the first MarkFresh.
func NewStore() *Store {
	return &Store{
		stale: true,
		subs:  make(map[int]func(Change)),
		now:   time.Now,
	}
}

// XP returns the current XP total
func (s *Store) XP() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.XP
}

// Snapshot returns a copy of the profile and whether it was ever loaded
func (s *Store) Snapshot() (domain.ProfileSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.loaded
}

// Stale reports whether the copy may differ from the backend
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// MarkFresh replaces the copy with a snapshot loaded from the backend
func (s *Store) MarkFresh(snapshot domain.ProfileSnapshot) {
	s.mu.Lock()
	prev := s.snapshot.XP
	s.snapshot = snapshot
	s.loaded = true
	s.stale = false
	change := Change{Previous: prev, XP: snapshot.XP, Delta: snapshot.XP - prev, At: s.now()}
	s.mu.Unlock()

	if change.Delta != 0 {
		s.notify(change)
	}
}

// Subscribe registers fn for every change and returns its cancel func
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) applyDelta(result *domain.AttemptResult) Change {
	return s.write(result, func(xp int) int { return xp + result.XPEarned })
}

func (s *Store) replace(result *domain.AttemptResult, xp int) Change {
	return s.write(result, func(int) int { return xp })
}

func (s *Store) write(result *domain.AttemptResult, next func(int) int) Change {
	s.mu.Lock()
	prev := s.snapshot.XP
	s.snapshot.XP = next(prev)
	s.stale = true
	change := Change{
		AttemptID: result.AttemptID,
		Strategy:  result.Strategy,
		Previous:  prev,
		XP:        s.snapshot.XP,
		Delta:     s.snapshot.XP - prev,
		At:        s.now(),
	}
	s.mu.Unlock()

	s.notify(change)
	return change
}

func (s *Store) notify(change Change) {
	s.subsMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
