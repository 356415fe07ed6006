// wardrive-maint fires the map service's periodic maintenance endpoints:
// consolidate stored repeater sightings, then clean up stale repeaters.
// Intended to run from cron; both calls are idempotent.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctmesh/wardrive/internal/config"
	"github.com/ctmesh/wardrive/internal/logging"
	"github.com/ctmesh/wardrive/internal/sink"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run maintenance", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Configure(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}

	client := sink.New(cfg.Sink.BaseURL, logger)

	body, err := client.Consolidate(ctx)
	if err != nil {
		return err
	}
	logger.Info("consolidate finished", "response", body)

	body, err = client.CleanUpRepeaters(ctx)
	if err != nil {
		return err
	}
	logger.Info("clean-up finished", "response", body)

	return nil
}
