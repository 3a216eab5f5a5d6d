package shared

import (
	"context"
	"fmt"
	"time"
)

// RetryCfg is the configuration for retrying a fallible operation.
// Attempts: total attempts for the operation.
// Delay: delay before 1st retry.
// DelayMultiplier: delay multiplier for each retry if needed.
type RetryCfg struct {
	Attempts        int
	Delay           time.Duration
	DelayMultiplier float64
}

// Retry runs op until it succeeds, the attempt budget is spent, or ctx is
// done. The last error is wrapped with the attempt count so callers can tell
// exhaustion apart from a single failure.
func Retry(ctx context.Context, cfg RetryCfg, op func() error) error {
	if cfg.Attempts < 1 {
		return fmt.Errorf("invalid attempts: %d", cfg.Attempts)
	}
	if cfg.DelayMultiplier <= 0 {
		cfg.DelayMultiplier = 1.0
	}

	delay := cfg.Delay
	var latestErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			LogLevel("debug", "retrying, attempt %d/%d", attempt, cfg.Attempts)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * cfg.DelayMultiplier)
		}

		latestErr = op()
		if latestErr == nil {
			return nil
		}
	}

	return fmt.Errorf("after %d attempts: %w", cfg.Attempts, latestErr)
}
