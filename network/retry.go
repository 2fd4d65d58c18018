package network

import (
	"context"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
)

// RetryConfig configures the shared retry helper.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay grows between attempts.
	Multiplier float64
}

// DefaultRetryConfig gives three attempts with delays of 1s then 2s, the
// historical schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

type backoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

// nextDelay returns the delay to apply before retry number attempt (0-based).
func (b *backoff) nextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.initialDelay)
	for i := 0; i < attempt; i++ {
		delay *= b.multiplier
	}

	result := time.Duration(delay)
	if result > b.maxDelay {
		result = b.maxDelay
	}
	return result
}

// doWithRetry runs operation up to config.MaxAttempts times, sleeping
// between attempts. Non-retryable errors and context cancellation stop the
// loop immediately; the last error is returned after exhaustion.
func doWithRetry(ctx context.Context, config RetryConfig, operation func() error) error {
	if config.MaxAttempts <= 1 {
		return operation()
	}

	b := &backoff{
		initialDelay: config.InitialDelay,
		maxDelay:     config.MaxDelay,
		multiplier:   config.Multiplier,
	}

	err := operation()
	if err == nil {
		return nil
	}
	if !apperrors.IsRetryable(err) {
		return err
	}

	for attempt := 1; attempt < config.MaxAttempts; attempt++ {
		delay := b.nextDelay(attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation()
		if err == nil {
			return nil
		}
		if !apperrors.IsRetryable(err) {
			return err
		}
	}

	return err
}
