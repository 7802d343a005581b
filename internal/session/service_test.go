package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/edulearn/edulearn/internal/domain"
	"github.com/edulearn/edulearn/internal/handoff"
	"github.com/edulearn/edulearn/internal/profile"
	"github.com/edulearn/edulearn/internal/scoring"
)

// mockGenerator implements generator.Generator for testing
type mockGenerator struct {
	quiz  *domain.Quiz
	err   error
	level domain.Difficulty
}

func (m *mockGenerator) Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	m.level = difficulty
	if m.err != nil {
		return nil, m.err
	}
	return m.quiz.Clone(), nil
}

type testEnv struct {
	service  *Service
	grader   *mockGrader
	recorder *mockRecorder
	catalog  *mockCatalog
	profile  *profile.Store
	slots    *handoff.Store
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	slots, _ := newHandoffStore(t)
	env := &testEnv{
		grader:   &mockGrader{},
		recorder: &mockRecorder{},
		catalog:  &mockCatalog{quiz: testQuiz(3, 50, false)},
		profile:  profile.NewStore(),
		slots:    slots,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reconciler := profile.NewReconciler(env.profile, profile.NewMemoryLedger(), logger)
	engines := scoring.Engines{
		Remote: scoring.NewRemote(env.grader),
		Local:  scoring.NewLocal(env.recorder),
	}

	env.service = NewService(NewStore(), NewResolver(env.catalog, slots, logger), engines, reconciler)
	env.service.SetLogger(logger)
	env.service.SetGenerator(&mockGenerator{quiz: testQuiz(3, 100, true)}, slots)
	return env
}

func answerAll(t *testing.T, svc *Service, v *View) {
	t.Helper()
	for _, q := range v.Quiz.Questions {
		if _, err := svc.Select(context.Background(), v.ID, q.ID, q.Options[0].ID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
	}
}

func TestService_GenerateThenStartFromCache(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	quiz, err := env.service.Generate(ctx, "tab-7", "Go channels", "medium")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if quiz.Questions[0].Options[0].Correct == nil {
		t.Error("generated quiz should carry correctness flags for hand-off")
	}

	v, err := env.service.Start(ctx, StartRequest{TabID: "tab-7"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !v.Generated || v.Strategy != domain.StrategyLocal || v.Total != 3 {
		t.Errorf("view = %+v", v)
	}

	// The slot is single-use.
	if _, err := env.service.Start(ctx, StartRequest{TabID: "tab-7"}); !errors.Is(err, domain.ErrNoQuizSpecified) {
		t.Errorf("second Start() error = %v, want ErrNoQuizSpecified", err)
	}
}

func TestService_CatalogIDIgnoresGeneratedQuiz(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	if _, err := env.service.Generate(ctx, "tab-1", "Go channels", "EASY"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	v, err := env.service.Start(ctx, StartRequest{TabID: "tab-1", QuizID: domain.Int64Ptr(7)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if v.Generated || v.Strategy != domain.StrategyRemote || env.catalog.calls != 1 {
		t.Errorf("view generated=%v strategy=%s, catalog calls %d", v.Generated, v.Strategy, env.catalog.calls)
	}

	// The generated quiz is still waiting for this tab.
	v, err = env.service.Start(ctx, StartRequest{TabID: "tab-1"})
	if err != nil {
		t.Fatalf("Start() from cache error = %v", err)
	}
	if !v.Generated || v.Strategy != domain.StrategyLocal {
		t.Errorf("view generated=%v strategy=%s, want cached generated quiz", v.Generated, v.Strategy)
	}
}

func TestService_GenerateValidation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	if _, err := env.service.Generate(ctx, "tab", "Go", "extreme"); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Errorf("Generate() error = %v, want ErrInvalidDifficulty", err)
	}
	if _, err := env.service.Generate(ctx, "../etc", "Go", "EASY"); !errors.Is(err, handoff.ErrInvalidTabID) {
		t.Errorf("Generate() error = %v, want ErrInvalidTabID", err)
	}
}

func TestService_CatalogAttempt(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	v, err := env.service.Start(ctx, StartRequest{QuizID: domain.Int64Ptr(7)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if v.Generated || v.Strategy != domain.StrategyRemote {
		t.Errorf("view = %+v", v)
	}

	if _, err := env.service.Submit(ctx, v.ID); !errors.Is(err, domain.ErrIncompleteAttempt) {
		t.Fatalf("Submit() error = %v, want ErrIncompleteAttempt", err)
	}

	answerAll(t, env.service, v)
	v, err = env.service.Submit(ctx, v.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if v.Status != StatusCompleted || v.Result == nil || v.Result.XPEarned != 50 {
		t.Errorf("view = %+v", v)
	}
	if env.profile.XP() != 50 {
		t.Errorf("profile XP = %d, want 50", env.profile.XP())
	}
}

func TestService_LocalAttemptReconcilesOnce(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.recorder.err = errors.New("backend unavailable")

	v, err := env.service.Start(ctx, StartRequest{Quiz: testQuiz(2, 100, true)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	answerAll(t, env.service, v)

	partial, err := env.service.Submit(ctx, v.ID)
	if !errors.Is(err, domain.ErrSubmissionFailed) {
		t.Fatalf("Submit() error = %v, want ErrSubmissionFailed", err)
	}
	if partial == nil || partial.Result == nil || partial.Result.XPEarned != 100 {
		t.Fatalf("partial view = %+v", partial)
	}
	if env.profile.XP() != 0 {
		t.Errorf("unrecorded XP reconciled: %d", env.profile.XP())
	}

	env.recorder.err = nil
	v, err = env.service.Submit(ctx, v.ID)
	if err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if env.profile.XP() != 100 || env.recorder.calls != 2 {
		t.Errorf("profile XP = %d, recorder calls = %d", env.profile.XP(), env.recorder.calls)
	}

	if _, err := env.service.Submit(ctx, v.ID); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Errorf("replay error = %v, want ErrAlreadySubmitted", err)
	}
	if env.profile.XP() != 100 {
		t.Errorf("profile XP after replay = %d", env.profile.XP())
	}
}

func TestService_Navigation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	v, _ := env.service.Start(ctx, StartRequest{QuizID: domain.Int64Ptr(7)})

	v, _ = env.service.Next(ctx, v.ID)
	v, _ = env.service.Next(ctx, v.ID)
	v, _ = env.service.Next(ctx, v.ID)
	if v.Current != 2 || !v.IsLast {
		t.Errorf("after three Next: current = %d", v.Current)
	}

	v, _ = env.service.Previous(ctx, v.ID)
	if v.Current != 1 {
		t.Errorf("after Previous: current = %d", v.Current)
	}

	if _, err := env.service.JumpTo(ctx, v.ID, 5); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("JumpTo(5) error = %v", err)
	}
	v, _ = env.service.JumpTo(ctx, v.ID, 0)
	if v.Current != 0 || v.HasPrevious {
		t.Errorf("after JumpTo(0): %+v", v)
	}
}

func TestService_AbandonAndDelete(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	v, _ := env.service.Start(ctx, StartRequest{QuizID: domain.Int64Ptr(7)})
	if len(env.service.List(ctx)) != 1 {
		t.Fatal("List() should include the new session")
	}

	v, err := env.service.Abandon(ctx, v.ID)
	if err != nil || v.Status != StatusAbandoned {
		t.Fatalf("Abandon() = %+v, %v", v, err)
	}
	if len(env.service.List(ctx)) != 0 {
		t.Error("List() should skip abandoned sessions")
	}

	if err := env.service.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.service.Get(ctx, v.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}
