package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
)

// Ledger records reconciled attempts in SQLite
type Ledger struct {
	db *DB
}

// NewLedger creates a ledger over a migrated database
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// Record inserts entry unless its attempt id is already present
func (l *Ledger) Record(ctx context.Context, entry profile.Entry) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO reconciliations (attempt_id, quiz_id, strategy, score, xp_earned, xp_total, reconciled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(attempt_id) DO NOTHING`,
		entry.AttemptID, nullInt64(entry.QuizID), string(entry.Strategy),
		entry.Score, entry.XPEarned, entry.XPTotal, entry.ReconciledAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert reconciliation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Recent lists up to n entries, newest first
func (l *Ledger) Recent(ctx context.Context, n int) ([]profile.Entry, error) {
	if n <= 0 {
		n = 20
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT attempt_id, quiz_id, strategy, score, xp_earned, xp_total, reconciled_at
		FROM reconciliations
		ORDER BY reconciled_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query reconciliations: %w", err)
	}
	defer rows.Close()

	var entries []profile.Entry
	for rows.Next() {
		var (
			e        profile.Entry
			quizID   sql.NullInt64
			strategy string
		)
		if err := rows.Scan(&e.AttemptID, &quizID, &strategy, &e.Score, &e.XPEarned, &e.XPTotal, &e.ReconciledAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		if quizID.Valid {
			e.QuizID = domain.Int64Ptr(quizID.Int64)
		}
		e.Strategy = domain.ScoringStrategy(strategy)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
