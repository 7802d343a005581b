package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/edulearn/edulearn/internal/backend"
	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/events"
	"github.com/edulearn/edulearn/internal/generator"
	"github.com/edulearn/edulearn/internal/handoff"
	"github.com/edulearn/edulearn/internal/llm"
	"github.com/edulearn/edulearn/internal/profile"
	"github.com/edulearn/edulearn/internal/scoring"
	"github.com/edulearn/edulearn/internal/session"
	"github.com/edulearn/edulearn/internal/storage/local"
	"github.com/edulearn/edulearn/internal/storage/postgres"
	"github.com/edulearn/edulearn/internal/storage/sqlite"
)

// providerOrder fixes registration order so "auto" is deterministic
var providerOrder = []string{"gemini", "openai", "ollama"}

// Services is the wired component graph behind the daemon and the MCP server
type Services struct {
	Sessions   session.SessionService
	Profile    *profile.Store
	Refresher  *profile.Refresher
	Reconciler *profile.Reconciler

	// Providers lists registered LLM providers, empty for backend generation
	Providers    []string
	LedgerDriver string
	EventsOn     bool

	closers []func() error
}

// BuildServices wires every component from cfg. dataDir holds the hand-off
// slots and the default SQLite ledger.
func BuildServices(ctx context.Context, cfg *config.LocalConfig, dataDir string) (*Services, error) {
	svc := &Services{LedgerDriver: cfg.Storage.LedgerDriver}

	client := backend.NewClient(backend.Config{
		BaseURL:       cfg.Backend.URL,
		Token:         cfg.Backend.Token,
		Timeout:       cfg.Backend.Timeout(),
		RatePerSecond: cfg.Backend.RateLimit,
	})
	svc.closers = append(svc.closers, client.Close)

	ledger, err := svc.openLedger(ctx, cfg.Storage, dataDir)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	svc.Profile = profile.NewStore()
	svc.Reconciler = profile.NewReconciler(svc.Profile, ledger, slog.Default())
	svc.Refresher = profile.NewRefresher(client, svc.Profile)

	files, err := local.NewStore(dataDir)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("create handoff store: %w", err)
	}
	slots := handoff.NewStore(files)
	if n, err := slots.Prune(handoff.MaxAge); err != nil {
		slog.Warn("failed to prune handoff slots", "error", err)
	} else if n > 0 {
		slog.Info("pruned stale handoff slots", "count", n)
	}

	resolver := session.NewResolver(client, slots, slog.Default())
	engines := scoring.Engines{
		Remote: scoring.NewRemote(client),
		Local:  scoring.NewLocal(client),
	}
	sessions := session.NewService(session.NewStore(), resolver, engines, svc.Reconciler)

	gen, err := svc.buildGenerator(cfg, client)
	if err != nil {
		svc.Close()
		return nil, err
	}
	sessions.SetGenerator(gen, slots)
	svc.Sessions = sessions

	if cfg.Events.Enabled {
		svc.startEvents(ctx, cfg.Events)
	}

	return svc, nil
}

func (s *Services) openLedger(ctx context.Context, cfg config.StorageConfig, dataDir string) (profile.Ledger, error) {
	switch cfg.LedgerDriver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.LedgerDSN, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })

		ledger := postgres.NewLedger(pool)
		if err := ledger.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return ledger, nil

	default:
		path := cfg.LedgerDSN
		if path == "" {
			path = filepath.Join(dataDir, "data", "ledger.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)

		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		return sqlite.NewLedger(db), nil
	}
}

// buildGenerator returns the backend generator unless the llm source is
// configured and at least one provider is usable.
func (s *Services) buildGenerator(cfg *config.LocalConfig, client *backend.Client) (generator.Generator, error) {
	if cfg.Generator.Source != "llm" {
		return generator.NewBackend(client), nil
	}

	registry := llm.NewRegistry()
	setupProviders(registry, cfg.Generator.Providers)
	s.Providers = registry.List()

	if err := registry.SetDefault(cfg.Generator.DefaultProvider); err != nil {
		slog.Warn("default provider unavailable, using first registered", "error", err)
		_ = registry.SetDefault("auto")
	}

	provider, err := registry.Default()
	if errors.Is(err, llm.ErrNoDefaultProvider) {
		slog.Warn("no llm provider configured, generating through the backend")
		return generator.NewBackend(client), nil
	}
	if err != nil {
		return nil, err
	}

	rcfg := llm.DefaultResilientConfig()
	rcfg.Logger = slog.Default()
	resilient := llm.NewResilientProvider(provider, rcfg)
	s.closers = append(s.closers, resilient.Close)

	return generator.NewLLM(resilient, cfg.Generator.QuestionCount, slog.Default()), nil
}

// setupProviders registers every enabled provider that has what it needs
func setupProviders(registry *llm.Registry, providers map[string]*config.ProviderConfig) {
	for _, name := range providerOrder {
		pc, ok := providers[name]
		if !ok || pc == nil || !pc.Enabled {
			continue
		}

		switch name {
		case "gemini":
			if pc.APIKey == "" {
				slog.Debug("gemini provider enabled but no API key set")
				continue
			}
			registry.Register(name, llm.NewGeminiProvider(llm.GeminiConfig{
				APIKey:  pc.APIKey,
				BaseURL: pc.URL,
				Model:   pc.Model,
			}))
		case "openai":
			if pc.APIKey == "" {
				slog.Debug("openai provider enabled but no API key set")
				continue
			}
			registry.Register(name, llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey:  pc.APIKey,
				BaseURL: pc.URL,
				Model:   pc.Model,
			}))
		case "ollama":
			registry.Register(name, llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: pc.URL,
				Model:   pc.Model,
			}))
		}
		slog.Info("registered LLM provider", "name", name, "model", pc.Model)
	}
}

// startEvents connects to the broker and forwards XP changes. A broker
// that is down at startup disables events for this run.
func (s *Services) startEvents(ctx context.Context, cfg config.EventsConfig) {
	conn, err := events.NewConnection(cfg.AMQPURL, cfg.Queue)
	if err != nil {
		slog.Warn("event broker unavailable, xp events disabled", "error", err)
		return
	}

	publisher := events.NewPublisher(conn, events.DefaultPublisherConfig())
	detach := publisher.Attach(s.Profile)
	publisher.Start(ctx)
	s.EventsOn = true

	s.closers = append(s.closers, func() error {
		detach()
		publisher.Stop()
		return conn.Close()
	})
}

// Close releases resources in reverse order of acquisition
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
