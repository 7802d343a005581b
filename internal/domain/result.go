package domain

import "time"

// ScoringStrategy tags which scoring engine produced a result
type ScoringStrategy string

const (
	StrategyRemote ScoringStrategy = "remote"
	StrategyLocal  ScoringStrategy = "local"
)

// AttemptResult is created once at submission and never mutated
type AttemptResult struct {
	AttemptID string          `json:"attempt_id"`
	QuizID    *int64          `json:"quiz_id,omitempty"`
	Score     int             `json:"score"`
	XPEarned  int             `json:"xp_earned"`
	Strategy  ScoringStrategy `json:"strategy"`

	// Recorded is true once the backend has durably accepted the XP
	Recorded bool `json:"recorded"`

	// Profile is the server's profile snapshot when the backend returned one
	Profile *ProfileSnapshot `json:"profile,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// ProfileSnapshot is the externally owned user profile as last seen
type ProfileSnapshot struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
}
