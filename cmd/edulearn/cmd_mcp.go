package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/daemon"
	"github.com/edulearn/edulearn/internal/mcp"
)

// cmdMCP hosts the quiz tools over MCP on stdio
func cmdMCP() error {
	// stdout carries the protocol, log to stderr only
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	dataDir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("setup data directory: %w", err)
	}

	cfg, err := config.LoadLocalConfigFrom(dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := daemon.BuildServices(ctx, cfg, dataDir)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer services.Close()

	server := mcp.NewServer(mcp.Config{
		SessionService: services.Sessions,
		ProfileStore:   services.Profile,
		Refresher:      services.Refresher,
	})

	slog.Info("mcp server ready", "ledger", services.LedgerDriver, "providers", services.Providers)
	return server.ServeStdio(ctx)
}
