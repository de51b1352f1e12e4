// Package resilience provides retry-with-backoff and circuit-breaker
// primitives shared by the LLM Gateway and the Integration Contract,
// adapted from the teacher framework's resilience package.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig mirrors the teacher's sensible defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// ErrMaxRetriesExceeded is returned (wrapped) when every attempt failed.
var ErrMaxRetriesExceeded = fmt.Errorf("maximum retries exceeded")

// Retry runs fn up to config.MaxAttempts times with exponential backoff,
// honoring ctx cancellation between attempts and during the sleep.
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == config.MaxAttempts {
			break
		}

		if attempt > 1 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		sleep := delay
		if config.JitterEnabled {
			// Equal jitter: half the computed delay is fixed, half is
			// randomized, so retries from concurrent callers spread out
			// instead of synchronizing on the same backoff schedule.
			sleep = delay/2 + time.Duration(rand.Float64()*float64(delay/2))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w (%d attempts) for %v", ErrMaxRetriesExceeded, config.MaxAttempts, lastErr)
}
