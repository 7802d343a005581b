package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/edulearn/edulearn/internal/backend"
	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/handoff"
	"github.com/edulearn/edulearn/internal/storage/local"
)

// mockCatalog implements Catalog for testing
type mockCatalog struct {
	quiz  *domain.Quiz
	err   error
	calls int
}

func (m *mockCatalog) GetQuiz(ctx context.Context, id int64) (*domain.Quiz, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quiz.Clone(), nil
}

func newHandoffStore(t *testing.T) (*handoff.Store, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := local.NewStore(dir)
	if err != nil {
		t.Fatalf("local.NewStore() error = %v", err)
	}
	return handoff.NewStore(files), dir
}

func TestResolver_Priority(t *testing.T) {
	slots, _ := newHandoffStore(t)
	catalog := &mockCatalog{quiz: testQuiz(2, 100, false)}
	r := NewResolver(catalog, slots, nil)
	ctx := context.Background()

	cached := testQuiz(3, 100, true)
	cached.Title = "cached"
	if err := slots.Scope("tab").Put(ctx, cached); err != nil {
		t.Fatal(err)
	}

	direct := testQuiz(4, 100, true)
	direct.Title = "direct"
	got, err := r.Resolve(ctx, Source{Handoff: direct, TabID: "tab", QuizID: domain.Int64Ptr(7)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Quiz.Title != "direct" || !got.Generated {
		t.Errorf("Resolve() = %q generated=%v, want direct hand-off", got.Quiz.Title, got.Generated)
	}

	// A catalog id wins over the cache and leaves it in place.
	got, err = r.Resolve(ctx, Source{TabID: "tab", QuizID: domain.Int64Ptr(7)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Generated || got.Quiz.ID == nil || catalog.calls != 1 {
		t.Errorf("Resolve() = %+v, catalog calls %d, want catalog quiz", got, catalog.calls)
	}

	// Without an id the cache is taken and cleared.
	got, err = r.Resolve(ctx, Source{TabID: "tab"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Quiz.Title != "cached" || !got.Generated {
		t.Errorf("Resolve() = %q, want cached", got.Quiz.Title)
	}

	if _, err := r.Resolve(ctx, Source{TabID: "tab"}); !errors.Is(err, domain.ErrNoQuizSpecified) {
		t.Errorf("Resolve() after take error = %v, want ErrNoQuizSpecified", err)
	}
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog *mockCatalog
		src     Source
		wantErr error
	}{
		{"nothing", &mockCatalog{}, Source{}, domain.ErrNoQuizSpecified},
		{"empty tab", &mockCatalog{}, Source{TabID: "tab"}, domain.ErrNoQuizSpecified},
		{"not found", &mockCatalog{err: fmt.Errorf("GET: %w", backend.ErrNotFound)}, Source{QuizID: domain.Int64Ptr(1)}, domain.ErrQuizNotFound},
		{"backend down", &mockCatalog{err: errors.New("dial tcp: refused")}, Source{QuizID: domain.Int64Ptr(1)}, domain.ErrQuizLoadFailed},
		{"bad catalog quiz", &mockCatalog{quiz: &domain.Quiz{ID: domain.Int64Ptr(1)}}, Source{QuizID: domain.Int64Ptr(1)}, domain.ErrQuizLoadFailed},
		{"bad hand-off", &mockCatalog{}, Source{Handoff: &domain.Quiz{Title: "empty"}}, domain.ErrInvalidQuiz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, _ := newHandoffStore(t)
			r := NewResolver(tt.catalog, slots, nil)
			if _, err := r.Resolve(context.Background(), tt.src); !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolver_CorruptCacheIsCleared(t *testing.T) {
	slots, dir := newHandoffStore(t)
	r := NewResolver(&mockCatalog{}, slots, nil)

	path := filepath.Join(dir, "handoff", "tab.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Resolve(context.Background(), Source{TabID: "tab"}); !errors.Is(err, domain.ErrNoQuizSpecified) {
		t.Errorf("Resolve() error = %v, want ErrNoQuizSpecified", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt cache entry should be removed")
	}
}

func TestResolver_InvalidCachedQuizIsDropped(t *testing.T) {
	slots, _ := newHandoffStore(t)
	r := NewResolver(&mockCatalog{}, slots, nil)
	ctx := context.Background()

	bad := testQuiz(1, 100, true)
	bad.Questions[0].Options = bad.Questions[0].Options[:1]
	if err := slots.Scope("tab").Put(ctx, bad); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Resolve(ctx, Source{TabID: "tab"}); !errors.Is(err, domain.ErrNoQuizSpecified) {
		t.Errorf("Resolve() error = %v, want ErrNoQuizSpecified", err)
	}
	if _, ok, _ := slots.Scope("tab").TakeIfPresent(ctx); ok {
		t.Error("invalid cache entry should be cleared")
	}
}
