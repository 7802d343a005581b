package profile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edulearn/edulearn/internal/domain"
)

// Entry is one reconciled attempt
type Entry struct {
	AttemptID    string                 `json:"attempt_id"`
	QuizID       *int64                 `json:"quiz_id,omitempty"`
	Strategy     domain.ScoringStrategy `json:"strategy"`
	Score        int                    `json:"score"`
	XPEarned     int                    `json:"xp_earned"`
	XPTotal      int                    `json:"xp_total"`
	ReconciledAt time.Time              `json:"reconciled_at"`
}

// Ledger durably records which attempts have been reconciled
type Ledger interface {
	// Record stores entry and reports whether it was new. A second
	// entry for the same attempt id is not stored and reports false.
	Record(ctx context.Context, entry Entry) (bool, error)

	// Recent lists up to n entries, newest first
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// MemoryLedger is an in-process Ledger
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (l *MemoryLedger) Record(_ context.Context, entry Entry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[entry.AttemptID]; ok {
		return false, nil
	}
	l.entries[entry.AttemptID] = entry
	return true, nil
}

func (l *MemoryLedger) Recent(_ context.Context, n int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReconciledAt.After(out[j].ReconciledAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
