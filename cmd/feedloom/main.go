package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedloom/internal/loader"
)

const defaultConfigPath = "config.toml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single refresh and exit")
	source     = flag.String("source", "", "Only refresh this provider")
	query      = flag.String("q", "", "Refresh with this search term instead of discovery")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("Received signal, shutting down gracefully", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := loader.LoadAndBuild(ctx, *configPath, *configPath == defaultConfigPath, loader.Options{
		RunOnce:    *once,
		Source:     *source,
		SearchTerm: *query,
	})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	refresher := app.Refresher
	slog.Info("Starting refresher", "name", refresher.Name(), "once", *once)

	errChan := make(chan error, 1)
	go func() {
		if err := refresher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
		close(errChan)
	}()

	go func() {
		for err := range refresher.Errors() {
			slog.Error("Refresh failed", "error", err)
		}
	}()

	var runErr error
	select {
	case err, ok := <-errChan:
		if ok {
			runErr = err
		}
	case <-ctx.Done():
		slog.Info("Initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := refresher.Stop(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("shutdown error: %w", err))
	}

	if runErr != nil {
		return runErr
	}

	slog.Info("Refresher stopped successfully")
	return nil
}
