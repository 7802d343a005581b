package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS reconciliations (
	attempt_id    TEXT PRIMARY KEY,
	quiz_id       BIGINT,
	strategy      TEXT NOT NULL CHECK (strategy IN ('remote', 'local')),
	score         INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	xp_earned     INTEGER NOT NULL CHECK (xp_earned >= 0),
	xp_total      INTEGER NOT NULL,
	reconciled_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reconciliations_reconciled_at
	ON reconciliations (reconciled_at DESC);
`

var _ profile.Ledger = (*Ledger)(nil)

// Ledger records reconciled attempts in PostgreSQL
type Ledger struct {
	db *pgxpool.Pool
}

// NewLedger creates a ledger over pool
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{db: pool}
}

// EnsureSchema creates the ledger table if it does not exist
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Record inserts entry unless its attempt id is already present
func (l *Ledger) Record(ctx context.Context, entry profile.Entry) (bool, error) {
	query := `
		INSERT INTO reconciliations (attempt_id, quiz_id, strategy, score, xp_earned, xp_total, reconciled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (attempt_id) DO NOTHING
	`

	tag, err := l.db.Exec(ctx, query,
		entry.AttemptID,
		entry.QuizID,
		string(entry.Strategy),
		entry.Score,
		entry.XPEarned,
		entry.XPTotal,
		entry.ReconciledAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert reconciliation: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Recent lists up to n entries, newest first
func (l *Ledger) Recent(ctx context.Context, n int) ([]profile.Entry, error) {
	if n <= 0 {
		n = 20
	}

	query := `
		SELECT attempt_id, quiz_id, strategy, score, xp_earned, xp_total, reconciled_at
		FROM reconciliations
		ORDER BY reconciled_at DESC
		LIMIT $1
	`

	rows, err := l.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query reconciliations: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (profile.Entry, error) {
		var (
			e        profile.Entry
			strategy string
		)
		err := row.Scan(&e.AttemptID, &e.QuizID, &strategy, &e.Score, &e.XPEarned, &e.XPTotal, &e.ReconciledAt)
		e.Strategy = domain.ScoringStrategy(strategy)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect reconciliations: %w", err)
	}

	return entries, nil
}
