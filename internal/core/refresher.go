package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Runner is one unit of periodic work.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// Refresher runs a Runner once or on an interval until stopped.
type Refresher struct {
	name       string
	runner     Runner
	interval   time.Duration
	runOnce    bool
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	stopOnce   sync.Once
	errorCh    chan error
	shutdownFn func(ctx context.Context) error
}

type RefresherConfig struct {
	Name       string
	Runner     Runner
	Interval   time.Duration
	RunOnce    bool
	ShutdownFn func(ctx context.Context) error
}

func NewRefresher(config RefresherConfig) *Refresher {
	if config.Interval == 0 {
		config.Interval = 15 * time.Minute
	}

	return &Refresher{
		name:       config.Name,
		runner:     config.Runner,
		interval:   config.Interval,
		runOnce:    config.RunOnce,
		running:    false,
		stopCh:     make(chan struct{}),
		errorCh:    make(chan error, 10),
		shutdownFn: config.ShutdownFn,
	}
}

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	r.running = true
	r.mu.Unlock()

	if r.runOnce {
		return r.runOnceMode(ctx)
	}

	return r.runContinuousMode(ctx)
}

func (r *Refresher) runOnceMode(ctx context.Context) error {
	defer r.markStopped()

	if _, err := r.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("refresh failed: %w", err)
	}

	return nil
}

func (r *Refresher) runContinuousMode(ctx context.Context) error {
	defer r.markStopped()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.report(r.executeRun(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			r.report(r.executeRun(ctx))
		}
	}
}

// executeRun bounds a run so it finishes before the next tick.
func (r *Refresher) executeRun(ctx context.Context) error {
	timeout := r.interval - 10*time.Second
	if timeout <= 0 {
		timeout = r.interval
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := r.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("refresh failed: %w", err)
	}

	return nil
}

func (r *Refresher) report(err error) {
	if err == nil {
		return
	}
	select {
	case r.errorCh <- err:
	default:
	}
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stopCh) })

	if r.shutdownFn != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := r.shutdownFn(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	return nil
}

func (r *Refresher) Name() string {
	return r.name
}

func (r *Refresher) Errors() <-chan error {
	return r.errorCh
}

func (r *Refresher) markStopped() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}
