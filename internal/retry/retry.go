package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"feedloom/internal/types"
)

const (
	DefaultMaxRetries = 3
	DefaultDelay      = time.Second
	DefaultJitter     = 250 * time.Millisecond

	// MaxRetryAfter caps how long a provider's Retry-After can stall a fetch.
	MaxRetryAfter = 30 * time.Second
)

// Policy retries rate-limited calls with a fixed delay plus jitter. Any
// other error ends the loop on the first attempt.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Jitter     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultDelay,
		Jitter:     DefaultJitter,
	}
}

// Attempts is the total number of calls the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var rl *types.RateLimitedError
		if !errors.As(err, &rl) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		if err := sleep(ctx, p.wait(rl)); err != nil {
			return zero, err
		}
	}

	return zero, &types.ExhaustedRetriesError{Attempts: attempts, Last: lastErr}
}

func (p Policy) wait(rl *types.RateLimitedError) time.Duration {
	d := p.Delay
	if rl.RetryAfter > d {
		d = min(rl.RetryAfter, MaxRetryAfter)
	}
	if p.Jitter > 0 {
		d += rand.N(p.Jitter)
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
