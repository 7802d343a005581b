package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that override file configuration
const (
	EnvBackendURL    = "EDULEARN_BACKEND_URL"
	EnvBackendToken  = "EDULEARN_BACKEND_TOKEN"
	EnvLogLevel      = "EDULEARN_LOG_LEVEL"
	EnvPort          = "EDULEARN_PORT"
	EnvAMQPURL       = "EDULEARN_AMQP_URL"
	EnvEventsEnabled = "EDULEARN_EVENTS_ENABLED"
	EnvLedgerDriver  = "EDULEARN_LEDGER_DRIVER"
	EnvLedgerDSN     = "EDULEARN_LEDGER_DSN"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
)

// applyEnv overlays environment variables onto cfg
func applyEnv(cfg *LocalConfig) {
	cfg.Backend.URL = strings.TrimRight(getEnv(EnvBackendURL, cfg.Backend.URL), "/")
	cfg.Backend.Token = getEnv(EnvBackendToken, cfg.Backend.Token)
	cfg.Daemon.LogLevel = getEnv(EnvLogLevel, cfg.Daemon.LogLevel)
	cfg.Daemon.Port = getEnvInt(EnvPort, cfg.Daemon.Port)

	cfg.Events.AMQPURL = getEnv(EnvAMQPURL, cfg.Events.AMQPURL)
	cfg.Events.Enabled = getEnvBool(EnvEventsEnabled, cfg.Events.Enabled)

	cfg.Storage.LedgerDriver = getEnv(EnvLedgerDriver, cfg.Storage.LedgerDriver)
	cfg.Storage.LedgerDSN = getEnv(EnvLedgerDSN, cfg.Storage.LedgerDSN)

	if p, ok := cfg.Generator.Providers["gemini"]; ok {
		p.APIKey = getEnv(EnvGeminiAPIKey, p.APIKey)
	}
	if p, ok := cfg.Generator.Providers["openai"]; ok {
		p.APIKey = getEnv(EnvOpenAIAPIKey, p.APIKey)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
