package errors

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool

	// Operation names the retried operation in log records.
	Operation string

	// Logger receives attempt and exhaustion records. Nil uses slog.Default().
	Logger *slog.Logger

	// Wait performs the backoff wait. Nil uses a timer honouring ctx.
	Wait WaitFunc
}

// DefaultRetryConfig returns sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// BackoffDelay returns the wait before attempt+1, given that attempt (1-based) failed.
// With the default multiplier the sequence is base, base*2, base*4, ...
func (cfg RetryConfig) BackoffDelay(attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	delay := float64(cfg.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= mult
		if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
			return cfg.MaxDelay
		}
	}
	return time.Duration(delay)
}

// Retry executes fn with exponential backoff.
// Every failed attempt is logged at warn level with its attempt number. After
// MaxAttempts consecutive failures an error record is logged and the last
// error returned by fn is returned as is, never wrapped.
// If ctx is cancelled while waiting, ctx.Err() is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a value with retry logic.
// Similar to Retry but for functions that return both a result and an error.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wait := cfg.Wait
	if wait == nil {
		wait = timerWait
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		attrs := []any{
			slog.String("operation", cfg.Operation),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
		}
		if attempt == maxAttempts {
			logger.Warn("retry_attempt_failed", append(attrs, slog.String("error", err.Error()))...)
			break
		}

		waitDelay := cfg.BackoffDelay(attempt)
		if cfg.Jitter {
			// delay * (0.5 + rand(0, 0.5))
			jitterFactor := 0.5 + rand.Float64()*0.5
			waitDelay = time.Duration(float64(waitDelay) * jitterFactor)
		}

		logger.Warn("retry_attempt_failed", append(attrs,
			slog.Duration("next_delay", waitDelay),
			slog.String("error", err.Error()))...)

		if err := wait(ctx, waitDelay); err != nil {
			return zero, err
		}
	}

	logger.Error("retry_exhausted",
		slog.String("operation", cfg.Operation),
		slog.Int("attempts", maxAttempts),
		slog.String("error", lastErr.Error()))
	return zero, lastErr
}

func timerWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
