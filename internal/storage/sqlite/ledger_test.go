package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
)

func TestLedger_RecordOnce(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	ctx := context.Background()

	entry := profile.Entry{
		AttemptID:    "42",
		QuizID:       domain.Int64Ptr(7),
		Strategy:     domain.StrategyRemote,
		Score:        67,
		XPEarned:     33,
		XPTotal:      1033,
		ReconciledAt: time.Now(),
	}

	inserted, err := ledger.Record(ctx, entry)
	if err != nil || !inserted {
		t.Fatalf("Record() = %v, %v; want true, nil", inserted, err)
	}

	entry.XPEarned = 99
	inserted, err = ledger.Record(ctx, entry)
	if err != nil || inserted {
		t.Fatalf("duplicate Record() = %v, %v; want false, nil", inserted, err)
	}

	got, err := ledger.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(got))
	}
	if got[0].XPEarned != 33 || got[0].QuizID == nil || *got[0].QuizID != 7 || got[0].Strategy != domain.StrategyRemote {
		t.Errorf("Recent()[0] = %+v", got[0])
	}
}

func TestLedger_RecentOrder(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := ledger.Record(ctx, profile.Entry{
			AttemptID:    id,
			Strategy:     domain.StrategyLocal,
			Score:        100,
			XPEarned:     10,
			XPTotal:      10 * (i + 1),
			ReconciledAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := ledger.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].AttemptID != "c" || got[1].AttemptID != "b" {
		t.Errorf("Recent(2) = %+v", got)
	}
	if got[1].QuizID != nil {
		t.Error("local entries have no quiz id")
	}
	if !got[0].ReconciledAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("ReconciledAt = %v", got[0].ReconciledAt)
	}
}

func TestLedger_WithReconciler(t *testing.T) {
	store := profile.NewStore()
	r := profile.NewReconciler(store, NewLedger(openTestDB(t)), nil)
	ctx := context.Background()

	result := &domain.AttemptResult{AttemptID: "x", Score: 100, XPEarned: 25, Strategy: domain.StrategyLocal, Recorded: true}
	for i := 0; i < 3; i++ {
		if _, err := r.Reconcile(ctx, result); err != nil {
			t.Fatal(err)
		}
	}
	if store.XP() != 25 {
		t.Errorf("XP() = %d, want 25", store.XP())
	}
}
