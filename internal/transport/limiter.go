package transport

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound provider calls. Implementations must be safe for
// concurrent use; one instance is shared by every fetcher in the process.
type Limiter interface {
	// Wait blocks until a call may start. The returned release func must
	// be called when the call finishes.
	Wait(ctx context.Context) (release func(), err error)
}

// WindowLimiter allows at most maxRequests calls to start per window and at
// most maxRequests calls in flight at once.
type WindowLimiter struct {
	limiter  *rate.Limiter
	inflight chan struct{}
}

func NewLimiter(maxRequests int, per time.Duration) *WindowLimiter {
	if maxRequests <= 0 {
		maxRequests = 2
	}
	if per <= 0 {
		per = time.Second
	}

	return &WindowLimiter{
		limiter:  rate.NewLimiter(rate.Every(per/time.Duration(maxRequests)), maxRequests),
		inflight: make(chan struct{}, maxRequests),
	}
}

func (w *WindowLimiter) Wait(ctx context.Context) (func(), error) {
	select {
	case w.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := w.limiter.Wait(ctx); err != nil {
		<-w.inflight
		return nil, err
	}

	return func() { <-w.inflight }, nil
}

type noopLimiter struct{}

// NoopLimiter never blocks.
func NoopLimiter() Limiter {
	return noopLimiter{}
}

func (noopLimiter) Wait(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
