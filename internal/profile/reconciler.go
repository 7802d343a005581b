package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edulearn/edulearn/internal/domain"
)

// ErrNotRecorded is returned when reconciling a result the backend has
// not accepted
var ErrNotRecorded = errors.New("attempt result not recorded")

// Reconciler applies attempt results to the profile store exactly once
// per attempt id
type Reconciler struct {
	store  *Store
	ledger Ledger
	logger *slog.Logger

	// serializes ledger check and store write
	mu sync.Mutex
}

// NewReconciler creates a reconciler writing to store and recording in ledger
func NewReconciler(store *Store, ledger Ledger, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, ledger: ledger, logger: logger}
}

// Reconcile updates XP for a recorded result. When the backend returned a
// profile snapshot its total replaces the local value; otherwise the
// earned XP is added. Returns false when the attempt was already applied.
func (r *Reconciler) Reconcile(ctx context.Context, result *domain.AttemptResult) (bool, error) {
	if result == nil || !result.Recorded {
		return false, ErrNotRecorded
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.store.XP() + result.XPEarned
	if result.Profile != nil {
		total = result.Profile.XP
	}

	entry := Entry{
		AttemptID:    result.AttemptID,
		QuizID:       result.QuizID,
		Strategy:     result.Strategy,
		Score:        result.Score,
		XPEarned:     result.XPEarned,
		XPTotal:      total,
		ReconciledAt: r.store.now(),
	}

	inserted, err := r.ledger.Record(ctx, entry)
	switch {
	case err != nil:
		// The session only reconciles once per attempt, so XP still moves.
		r.logger.Warn("failed to record reconciliation", "attempt_id", result.AttemptID, "error", err)
	case !inserted:
		r.logger.Info("attempt already reconciled", "attempt_id", result.AttemptID)
		return false, nil
	}

	var change Change
	if result.Profile != nil {
		change = r.store.replace(result, result.Profile.XP)
	} else {
		change = r.store.applyDelta(result)
	}

	r.logger.Info("xp reconciled",
		"attempt_id", result.AttemptID,
		"strategy", result.Strategy,
		"delta", change.Delta,
		"xp", change.XP)

	return true, nil
}

// History returns the most recent reconciled attempts
func (r *Reconciler) History(ctx context.Context, n int) ([]Entry, error) {
	entries, err := r.ledger.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return entries, nil
}
