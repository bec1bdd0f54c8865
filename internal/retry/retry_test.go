package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/retry"
	"feedloom/internal/types"
)

func fastPolicy(maxRetries int) retry.Policy {
	return retry.Policy{MaxRetries: maxRetries, Delay: time.Millisecond}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := retry.Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRateLimitedUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := retry.Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &types.RateLimitedError{Provider: "github"}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoSucceedsOnLastAllowedAttempt(t *testing.T) {
	t.Parallel()

	const maxRetries = 3
	calls := 0
	got, err := retry.Do(context.Background(), fastPolicy(maxRetries), func(context.Context) (string, error) {
		calls++
		if calls <= maxRetries {
			return "", &types.RateLimitedError{Provider: "arxiv"}
		}
		return "papers", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "papers", got)
	assert.Equal(t, maxRetries+1, calls)
}

// A provider that always answers 429 is called exactly MaxRetries+1 times.
func TestDoExhaustsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	for _, maxRetries := range []int{0, 1, 3} {
		calls := 0
		_, err := retry.Do(context.Background(), fastPolicy(maxRetries), func(context.Context) (int, error) {
			calls++
			return 0, &types.RateLimitedError{Provider: "wikipedia"}
		})

		var exhausted *types.ExhaustedRetriesError
		require.True(t, errors.As(err, &exhausted))
		assert.Equal(t, maxRetries+1, calls)
		assert.Equal(t, maxRetries+1, exhausted.Attempts)
		assert.True(t, types.IsRateLimited(err))
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"status", &types.StatusError{Provider: "books", StatusCode: 500}},
		{"transport", &types.TransportError{Provider: "books", Cause: errors.New("refused")}},
		{"timeout", &types.TimeoutError{TransportError: types.TransportError{Provider: "books"}, Timeout: time.Second}},
		{"parse", types.NewParseError("arxiv", "atom", errors.New("eof"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := retry.Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})

			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, tt.err)

			var exhausted *types.ExhaustedRetriesError
			assert.False(t, errors.As(err, &exhausted))
		})
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.Policy{MaxRetries: 3, Delay: time.Hour}

	calls := 0
	_, err := retry.Do(ctx, policy, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &types.RateLimitedError{Provider: "github"}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultPolicy(t *testing.T) {
	p := retry.DefaultPolicy()

	assert.Equal(t, 4, p.Attempts())
	assert.Equal(t, time.Second, p.Delay)
	assert.Equal(t, 1, retry.Policy{MaxRetries: -1}.Attempts())
}
