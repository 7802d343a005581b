package session

import (
	"context"

	"github.com/edulearn/edulearn/internal/domain"
)

// SessionService defines the attempt operations used by the daemon
// handlers and the MCP tools
type SessionService interface {
	// Generate produces a quiz and caches it in the tab's hand-off slot
	Generate(ctx context.Context, tabID, topic, difficulty string) (*domain.Quiz, error)

	// Start resolves a quiz and opens an attempt on it
	Start(ctx context.Context, req StartRequest) (*View, error)

	Get(ctx context.Context, id string) (*View, error)
	List(ctx context.Context) []*View

	Select(ctx context.Context, id string, questionID, optionID int64) (*View, error)
	Next(ctx context.Context, id string) (*View, error)
	Previous(ctx context.Context, id string) (*View, error)
	JumpTo(ctx context.Context, id string, index int) (*View, error)

	// Submit grades the attempt. A partial view is returned with the error
	// when a local result could not be recorded.
	Submit(ctx context.Context, id string) (*View, error)

	Abandon(ctx context.Context, id string) (*View, error)
	Delete(ctx context.Context, id string) error
}

// Ensure Service implements SessionService
var _ SessionService = (*Service)(nil)

// Reconciler applies a recorded result to the profile
type Reconciler interface {
	Reconcile(ctx context.Context, result *domain.AttemptResult) (bool, error)
}
