//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
)

// Set EDULEARN_TEST_POSTGRES_DSN to a disposable database to run these.
func setupLedger(t *testing.T) *Ledger {
	t.Helper()

	dsn := os.Getenv("EDULEARN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EDULEARN_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(pool.Close)

	ledger := NewLedger(pool)
	if err := ledger.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := ledger.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
	return ledger
}

func TestLedger_RecordOnce(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	entry := profile.Entry{
		AttemptID:    uuid.NewString(),
		QuizID:       domain.Int64Ptr(3),
		Strategy:     domain.StrategyRemote,
		Score:        80,
		XPEarned:     40,
		XPTotal:      440,
		ReconciledAt: time.Now().Add(time.Hour),
	}

	inserted, err := ledger.Record(ctx, entry)
	if err != nil || !inserted {
		t.Fatalf("Record() = %v, %v", inserted, err)
	}
	inserted, err = ledger.Record(ctx, entry)
	if err != nil || inserted {
		t.Fatalf("duplicate Record() = %v, %v", inserted, err)
	}

	got, err := ledger.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].AttemptID != entry.AttemptID || *got[0].QuizID != 3 {
		t.Errorf("Recent(1) = %+v", got)
	}
}
