package config

import (
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "EDULEARN_TEST_UNSET", "default", "", "default"},
		{"returns env value when set", "EDULEARN_TEST_SET", "default", "custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"returns default when not set", "", 100, 100},
		{"parses valid int", "42", 100, 42},
		{"returns default on invalid int", "not-a-number", 100, 100},
		{"parses zero", "0", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("EDULEARN_TEST_INT", tt.envValue)
			}

			got := getEnvInt("EDULEARN_TEST_INT", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"returns default when not set", "", true, true},
		{"parses true", "true", false, true},
		{"parses 0 as false", "0", true, false},
		{"returns default on invalid bool", "yes", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("EDULEARN_TEST_BOOL", tt.envValue)
			}

			got := getEnvBool("EDULEARN_TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBackendURL, "https://learn.example.com/api/")
	t.Setenv(EnvBackendToken, "tok")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvEventsEnabled, "true")
	t.Setenv(EnvLedgerDriver, "postgres")
	t.Setenv(EnvLedgerDSN, "postgres://u:p@localhost/edulearn")
	t.Setenv(EnvGeminiAPIKey, "gem-key")

	cfg := DefaultLocalConfig()
	applyEnv(cfg)

	if cfg.Backend.URL != "https://learn.example.com/api" {
		t.Errorf("Backend.URL = %q, want trailing slash trimmed", cfg.Backend.URL)
	}
	if cfg.Backend.Token != "tok" {
		t.Errorf("Backend.Token = %q, want tok", cfg.Backend.Token)
	}
	if cfg.Daemon.LogLevel != "debug" || cfg.Daemon.Port != 9001 {
		t.Errorf("Daemon = %+v, want debug on 9001", cfg.Daemon)
	}
	if !cfg.Events.Enabled {
		t.Error("Events.Enabled should be true")
	}
	if cfg.Storage.LedgerDriver != "postgres" || cfg.Storage.LedgerDSN == "" {
		t.Errorf("Storage = %+v, want postgres with dsn", cfg.Storage)
	}
	if cfg.Generator.Providers["gemini"].APIKey != "gem-key" {
		t.Errorf("gemini APIKey = %q, want gem-key", cfg.Generator.Providers["gemini"].APIKey)
	}
}
