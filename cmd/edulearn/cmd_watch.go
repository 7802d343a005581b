package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulearn/edulearn/internal/config"
	"github.com/edulearn/edulearn/internal/events"
)

// cmdWatch follows XP change events until interrupted
func cmdWatch() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Events.Enabled {
		return fmt.Errorf("events are disabled (set events.enabled in ~/.edulearn/config.yaml)")
	}

	conn, err := events.NewConnection(cfg.Events.AMQPURL, cfg.Events.Queue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(conn, printChange(os.Stdout), 1)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumer.Stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", conn.Queue())
	<-ctx.Done()
	return nil
}

// printChange renders each event as one line
func printChange(out io.Writer) events.Handler {
	return func(ctx context.Context, e *events.XPChanged) error {
		when := e.At.Local().Format("15:04:05")
		if e.Refresh() {
			_, err := fmt.Fprintf(out, "%s  profile reloaded  %d XP\n", when, e.XP)
			return err
		}
		_, err := fmt.Fprintf(out, "%s  attempt %s (%s)  %+d XP  -> %d XP\n", when, e.AttemptID, e.Strategy, e.Delta, e.XP)
		return err
	}
}
