package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy wraps a call with per-attempt timeout and exponential backoff.
// Delay doubles each attempt, capped at MaxDelay. No jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// DefaultRetry is the policy used for external API calls.
var DefaultRetry = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    5 * time.Second,
	Timeout:     10 * time.Second,
}

// Do runs fn until it succeeds or attempts are exhausted. Each attempt gets
// its own timeout derived from ctx. The last error is returned wrapped.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		logger.Warn("Retrying after failure",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, lastErr)
}
