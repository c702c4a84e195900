package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/recon/internal/service"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Sleeper suspends the caller between attempts. Tests swap in a fake clock.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper waits on the wall clock and honors context cancellation.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Backoff is an exponential delay policy: Base * Multiplier^attempt, capped at Max.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the wait before the attempt following the zero-based attempt index.
func (b Backoff) Delay(attempt int) time.Duration {
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(b.Base) * math.Pow(multiplier, float64(attempt)))
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay
}

// WithRetry executes an operation with configurable retry behavior.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	var sleeper Sleeper = RealSleeper
	if opts.Sleep != nil {
		sleeper = SleeperFunc(opts.Sleep)
	}

	backoff := Backoff{
		Base:       opts.InitialDelay,
		Max:        opts.MaxDelay,
		Multiplier: opts.Multiplier,
	}

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var retryableErr *RetryableError
		if errors.As(err, &retryableErr) && !retryableErr.Retryable {
			return err
		}

		if attempt == opts.MaxAttempts-1 {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, opts.MaxAttempts, err)
		}

		delay := backoff.Delay(attempt)
		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt+1,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		if sleepErr := sleeper.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}

	return ErrMaxRetries
}
