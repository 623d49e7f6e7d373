package retry

import (
	"context"
	"time"
)

// Config controls the retry behavior for a single operation.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// Retriable decides whether a given error is worth another attempt.
	// A nil Retriable falls back to DefaultRetriable.
	Retriable func(error) bool

	// OnRetry is invoked with the error before every retried attempt.
	// It fires attempts-1 times when all attempts fail. A panicking hook
	// is recovered and ignored so observation can never break the retry
	// loop itself.
	OnRetry func(error)
}

// DefaultConfig returns the retry configuration used for provider requests.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Do runs op until it succeeds or the attempt budget is exhausted.
// Between attempts it sleeps the current backoff delay, honoring context
// cancellation. The final error is returned as a value; Do never panics on
// behalf of the operation.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	retriable := cfg.Retriable
	if retriable == nil {
		retriable = DefaultRetriable
	}

	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// No point sleeping after the last attempt or for errors that
		// cannot succeed on retry.
		if attempt == attempts || !retriable(err) {
			break
		}

		notify(cfg.OnRetry, err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = nextDelay(delay, cfg)
	}

	return zero, lastErr
}

// nextDelay grows the backoff delay, capped at MaxDelay.
func nextDelay(current time.Duration, cfg Config) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 1 {
		return current
	}
	next := time.Duration(float64(current) * multiplier)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}

// notify invokes the OnRetry hook, swallowing any panic it raises.
func notify(hook func(error), err error) {
	if hook == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	hook(err)
}
