// Package events publishes XP changes to RabbitMQ so other processes
// (the CLI watcher, dashboards) can follow the profile without polling.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/profile"
)

// DefaultQueue is the queue XP events are published to
const DefaultQueue = "edulearn.xp"

// XPChanged is published after every profile write
type XPChanged struct {
	ID        uuid.UUID              `json:"id"`
	AttemptID string                 `json:"attempt_id,omitempty"`
	Strategy  domain.ScoringStrategy `json:"strategy,omitempty"`
	Delta     int                    `json:"delta"`
	XP        int                    `json:"xp"`
	At        time.Time              `json:"at"`
}

// Refresh reports whether the change came from a profile reload rather
// than an attempt
func (e *XPChanged) Refresh() bool {
	return e.AttemptID == ""
}

// FromChange converts a profile store change into an event
func FromChange(c profile.Change) *XPChanged {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	return &XPChanged{
		ID:        uuid.New(),
		AttemptID: c.AttemptID,
		Strategy:  c.Strategy,
		Delta:     c.Delta,
		XP:        c.XP,
		At:        at,
	}
}
