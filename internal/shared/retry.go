package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// RetryConfig holds retry configuration for provider calls.
type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts"` // Total attempts including the first
	InitialWait Duration      `toml:"initial_wait"` // Doubled after each failed attempt
	MaxWait     Duration      `toml:"max_wait"`     // Upper bound between attempts
	Logger      *log.Logger   `toml:"-"`
	sleep       func(context.Context, time.Duration) error
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: Duration(500 * time.Millisecond),
		MaxWait:     Duration(5 * time.Second),
	}
}

// NoWait returns a copy of the config that does not sleep between attempts.
func (c RetryConfig) NoWait() *RetryConfig {
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return &c
}

// RetryWithBackoff executes operation with exponential backoff.
//
// Only errors accepted by [IsRetryable] are retried. The last error is returned wrapped once attempts run out,
// so [errors.Is] checks against the taxonomy keep working.
func RetryWithBackoff[T any](ctx context.Context, cfg *RetryConfig, operation func(context.Context) (T, error), name string) (T, error) {
	var result T
	var err error

	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	attempts := max(cfg.MaxAttempts, 1)
	wait := cfg.InitialWait.Std()
	sleep := cfg.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = operation(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.Debug("retry succeeded", "op", name, "attempt", attempt)
			}
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt == attempts {
			if cfg.Logger != nil {
				cfg.Logger.Warn("retries exhausted", "op", name, "attempts", attempts, "error", err)
			}
			return result, fmt.Errorf("%s: max retries exceeded (%d attempts): %w", name, attempts, err)
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("retrying", "op", name, "attempt", attempt, "wait", wait, "error", err)
		}

		if serr := sleep(ctx, wait); serr != nil {
			return result, serr
		}

		wait *= 2
		if maxWait := cfg.MaxWait.Std(); maxWait > 0 && wait > maxWait {
			wait = maxWait
		}
	}

	return result, err
}

// Retry is [RetryWithBackoff] for operations without a result.
func Retry(ctx context.Context, cfg *RetryConfig, operation func(context.Context) error, name string) error {
	_, err := RetryWithBackoff(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, name)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
