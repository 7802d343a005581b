package daemon

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/generator"
	"github.com/edulearn/edulearn/internal/llm"
)

func TestSetupProviders(t *testing.T) {
	registry := llm.NewRegistry()
	setupProviders(registry, map[string]*config.ProviderConfig{
		"gemini": {Enabled: true, Model: "gemini-pro"},
		"openai": {Enabled: true, Model: "gpt-4o-mini", APIKey: "sk-1"},
		"ollama": {Enabled: true, URL: "http://localhost:11434", Model: "llama3"},
		"claude": {Enabled: true, APIKey: "ignored"},
	})

	want := []string{"openai", "ollama"}
	if got := registry.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestBuildGenerator(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		providers map[string]*config.ProviderConfig
		wantLLM   bool
	}{
		{"backend source", "backend", nil, false},
		{"llm without providers", "llm", map[string]*config.ProviderConfig{
			"gemini": {Enabled: true},
		}, false},
		{"llm with ollama", "llm", map[string]*config.ProviderConfig{
			"ollama": {Enabled: true, URL: "http://localhost:11434", Model: "llama3"},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultLocalConfig()
			cfg.Generator.Source = tt.source
			cfg.Generator.DefaultProvider = "gemini"
			cfg.Generator.Providers = tt.providers

			svc := &Services{}
			defer svc.Close()

			gen, err := svc.buildGenerator(cfg, nil)
			if err != nil {
				t.Fatalf("buildGenerator() error = %v", err)
			}

			_, isLLM := gen.(*generator.LLM)
			if isLLM != tt.wantLLM {
				t.Errorf("generator = %T, want llm %v", gen, tt.wantLLM)
			}
		})
	}
}

func TestBuildServices_LedgerError(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLocalConfig()
	// a directory cannot be opened as a database
	cfg.Storage.LedgerDSN = dir

	if _, err := BuildServices(context.Background(), cfg, dir); err == nil {
		t.Error("expected ledger error")
	}
}

func TestServices_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.LedgerDSN = filepath.Join(dir, "ledger.db")

	svc, err := BuildServices(context.Background(), cfg, dir)
	if err != nil {
		t.Fatalf("BuildServices() error = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
