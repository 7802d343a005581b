package profile

import (
	"context"
	"fmt"

	"github.com/edulearn/edulearn/internal/domain"
)

// Source loads the profile from the backend
type Source interface {
	Profile(ctx context.Context) (*domain.ProfileSnapshot, error)
}

// Refresher reloads the store from the backend
type Refresher struct {
	source Source
	store  *Store
}

// NewRefresher creates a refresher for store
func NewRefresher(source Source, store *Store) *Refresher {
	return &Refresher{source: source, store: store}
}

// Refresh loads the profile and clears the stale mark
func (r *Refresher) Refresh(ctx context.Context) (domain.ProfileSnapshot, error) {
	snapshot, err := r.source.Profile(ctx)
	if err != nil {
		return domain.ProfileSnapshot{}, fmt.Errorf("refresh profile: %w", err)
	}
	r.store.MarkFresh(*snapshot)
	return *snapshot, nil
}

// RefreshIfStale refreshes only when the store is stale
func (r *Refresher) RefreshIfStale(ctx context.Context) (domain.ProfileSnapshot, error) {
	if !r.store.Stale() {
		snapshot, _ := r.store.Snapshot()
		return snapshot, nil
	}
	return r.Refresh(ctx)
}
