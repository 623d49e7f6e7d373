package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo(t *testing.T) {
	t.Run("SucceedsFirstAttempt", func(t *testing.T) {
		calls := 0
		result, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		assert.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 1, calls)
	})

	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		calls := 0
		result, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 3, calls)
	})

	t.Run("ExhaustsAttempts", func(t *testing.T) {
		// The operation fails every time: Do must call it exactly
		// MaxAttempts times and fire the hook MaxAttempts-1 times.
		calls := 0
		hookCalls := 0
		cfg := fastConfig(4)
		cfg.OnRetry = func(err error) { hookCalls++ }

		_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("attempt %d failed", calls)
		})

		assert.Error(t, err)
		assert.EqualError(t, err, "attempt 4 failed")
		assert.Equal(t, 4, calls)
		assert.Equal(t, 3, hookCalls)
	})

	t.Run("PermanentErrorShortCircuits", func(t *testing.T) {
		calls := 0
		hookCalls := 0
		cfg := fastConfig(5)
		cfg.OnRetry = func(err error) { hookCalls++ }

		_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
			calls++
			return 0, &Permanent{Err: errors.New("unauthorized")}
		})

		assert.Error(t, err)
		assert.Equal(t, 1, calls, "permanent errors must not consume further attempts")
		assert.Equal(t, 0, hookCalls)
	})

	t.Run("WrappedPermanentError", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fastConfig(5), func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("request failed: %w", &Permanent{Err: errors.New("bad body")})
		})

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("ContextCancelledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		cfg := fastConfig(3)
		cfg.InitialDelay = time.Second

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := Do(ctx, cfg, func(ctx context.Context) (int, error) {
			return 0, errors.New("transient")
		})

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("PanickingHookIsIgnored", func(t *testing.T) {
		cfg := fastConfig(2)
		cfg.OnRetry = func(err error) { panic("observer blew up") }

		calls := 0
		_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})

		assert.Error(t, err)
		assert.Equal(t, 2, calls, "hook panic must not abort the retry loop")
	})

	t.Run("ZeroAttemptsStillRunsOnce", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), Config{}, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestDefaultRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"PlainError", errors.New("connection reset"), true},
		{"Canceled", context.Canceled, false},
		{"DeadlineExceeded", context.DeadlineExceeded, false},
		{"Permanent", &Permanent{Err: errors.New("nope")}, false},
		{"WrappedPermanent", fmt.Errorf("outer: %w", &Permanent{Err: errors.New("nope")}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetriable(tt.err))
		})
	}
}

func TestNextDelay(t *testing.T) {
	cfg := Config{Multiplier: 2.0, MaxDelay: 4 * time.Second}

	assert.Equal(t, 2*time.Second, nextDelay(time.Second, cfg))
	assert.Equal(t, 4*time.Second, nextDelay(3*time.Second, cfg), "delay must be capped at MaxDelay")

	// Multiplier <= 1 keeps the delay constant.
	flat := Config{Multiplier: 1.0}
	assert.Equal(t, time.Second, nextDelay(time.Second, flat))
}
