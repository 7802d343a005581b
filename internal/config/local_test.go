package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDir(t *testing.T) {
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}

	if filepath.Base(dir) != ".edulearn" {
		t.Errorf("Dir() = %q, want ending with .edulearn", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("Dir() = %q, want absolute path", dir)
	}
}

func TestEnsureDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsureDir()
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	if want := filepath.Join(tmpHome, ".edulearn"); dir != want {
		t.Errorf("EnsureDir() = %q, want %q", dir, want)
	}

	for _, subdir := range []string{"logs", "handoff", "data"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); os.IsNotExist(err) {
			t.Errorf("EnsureDir() should create %s", subdir)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if cfg.Daemon.Addr() != "127.0.0.1:7433" {
		t.Errorf("Daemon.Addr() = %q, want 127.0.0.1:7433", cfg.Daemon.Addr())
	}
	if cfg.Generator.Source != "backend" {
		t.Errorf("Generator.Source = %q, want backend", cfg.Generator.Source)
	}
	if cfg.Generator.QuestionCount != 3 {
		t.Errorf("Generator.QuestionCount = %d, want 3", cfg.Generator.QuestionCount)
	}
	if cfg.Storage.LedgerDriver != "sqlite" {
		t.Errorf("Storage.LedgerDriver = %q, want sqlite", cfg.Storage.LedgerDriver)
	}
	if cfg.Events.Queue != "edulearn.xp" {
		t.Errorf("Events.Queue = %q, want edulearn.xp", cfg.Events.Queue)
	}
	if cfg.Backend.Timeout().Seconds() != 15 {
		t.Errorf("Backend.Timeout() = %v, want 15s", cfg.Backend.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLocalConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *LocalConfig)
	}{
		{"unknown source", func(c *LocalConfig) { c.Generator.Source = "magic" }},
		{"too many questions", func(c *LocalConfig) { c.Generator.QuestionCount = 11 }},
		{"zero questions", func(c *LocalConfig) { c.Generator.QuestionCount = 0 }},
		{"unknown driver", func(c *LocalConfig) { c.Storage.LedgerDriver = "mysql" }},
		{"postgres without dsn", func(c *LocalConfig) { c.Storage.LedgerDriver = "postgres" }},
		{"empty backend url", func(c *LocalConfig) { c.Backend.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLocalConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestLoadLocalConfigFrom_DefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}

	if cfg.Daemon.Port != 7433 {
		t.Errorf("Daemon.Port = %d, want 7433", cfg.Daemon.Port)
	}
	if want := filepath.Join(dir, "data", "ledger.db"); cfg.Storage.LedgerDSN != want {
		t.Errorf("Storage.LedgerDSN = %q, want %q", cfg.Storage.LedgerDSN, want)
	}
}

func TestLoadLocalConfigFrom_WithFiles(t *testing.T) {
	dir := t.TempDir()

	config := `
daemon:
  port: 9000
backend:
  url: https://learn.example.com/api
generator:
  source: llm
  question_count: 5
  default_provider: ollama
events:
  enabled: true
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	secrets := `
backend:
  token: secret-token
providers:
  gemini:
    api_key: gem-key
  unknown:
    api_key: ignored
`
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte(secrets), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}

	if cfg.Daemon.Port != 9000 {
		t.Errorf("Daemon.Port = %d, want 9000", cfg.Daemon.Port)
	}
	// Unset fields keep their defaults
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon.Bind = %q, want default", cfg.Daemon.Bind)
	}
	if cfg.Generator.Source != "llm" || cfg.Generator.QuestionCount != 5 {
		t.Errorf("Generator = %+v", cfg.Generator)
	}
	if cfg.Backend.Token != "secret-token" {
		t.Errorf("Backend.Token = %q, want secret-token", cfg.Backend.Token)
	}
	if cfg.Generator.Providers["gemini"].APIKey != "gem-key" {
		t.Errorf("gemini APIKey = %q, want gem-key", cfg.Generator.Providers["gemini"].APIKey)
	}
	if _, ok := cfg.Generator.Providers["unknown"]; ok {
		t.Error("secrets should not create providers")
	}
	if !cfg.Events.Enabled {
		t.Error("Events.Enabled should be true")
	}
}

func TestLoadLocalConfigFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("daemon: [unclosed"), 0644)

	if _, err := LoadLocalConfigFrom(dir); err == nil {
		t.Error("LoadLocalConfigFrom() should fail on invalid YAML")
	}
}

func TestLoadLocalConfigFrom_InvalidSecrets(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte("backend: [unclosed"), 0600)

	if _, err := LoadLocalConfigFrom(dir); err == nil {
		t.Error("LoadLocalConfigFrom() should fail on invalid secrets")
	}
}

func TestSaveSecrets(t *testing.T) {
	dir := t.TempDir()

	if err := saveSecretsTo(dir, "tok", map[string]string{"openai": "sk-test"}); err != nil {
		t.Fatalf("saveSecretsTo() error = %v", err)
	}

	path := filepath.Join(dir, "secrets.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("secrets file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets permissions = %o, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		t.Fatalf("parse secrets: %v", err)
	}
	if secrets.Backend.Token != "tok" {
		t.Errorf("Backend.Token = %q, want tok", secrets.Backend.Token)
	}
	if secrets.Providers["openai"].APIKey != "sk-test" {
		t.Errorf("openai APIKey = %q, want sk-test", secrets.Providers["openai"].APIKey)
	}
}

func TestSaveLocalConfig_RoundTrip(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 9100
	cfg.Generator.Providers["gemini"].APIKey = "must-not-be-written"

	if err := SaveLocalConfig(cfg); err != nil {
		t.Fatalf("SaveLocalConfig() error = %v", err)
	}

	dir := filepath.Join(tmpHome, ".edulearn")
	raw, _ := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if len(raw) == 0 {
		t.Fatal("config.yaml is empty")
	}

	loaded, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if loaded.Daemon.Port != 9100 {
		t.Errorf("Daemon.Port = %d, want 9100", loaded.Daemon.Port)
	}
	if loaded.Generator.Providers["gemini"].APIKey != "" {
		t.Error("API keys must not be persisted in config.yaml")
	}
}
