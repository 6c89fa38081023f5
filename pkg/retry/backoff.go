// Package retry provides bounded exponential backoff for transient
// failures, used by the message store for S3 fetches and deletes.
//
//	err := retry.WithRetry(ctx, func() error {
//		return fetchObject(key)
//	}, retry.DefaultBackoffConfig())
//
// Jitter spreads the delays so parallel fetches do not hammer the
// store in lockstep: with jitter enabled the actual delay is
// baseDelay * (0.5 + random(0, 0.5)).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/neomutt/neomutt-sub017/logger"
)

// BackoffConfig bounds the retry schedule.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
	MaxRetries      int
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
		MaxRetries:      5,
	}
}

// ExponentialBackoff returns the delay schedule for the config: the
// interval grows by Multiplier per attempt, capped at MaxInterval.
func ExponentialBackoff(config BackoffConfig) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 0 {
			return config.InitialInterval
		}

		interval := float64(config.InitialInterval) * math.Pow(config.Multiplier, float64(attempt-1))
		if interval > float64(config.MaxInterval) {
			interval = float64(config.MaxInterval)
		}
		duration := time.Duration(interval)

		if config.Jitter {
			jitter := time.Duration(rand.Int63n(int64(duration / 2)))
			duration = duration/2 + jitter
		}
		return duration
	}
}

type RetryableFunc func() error

// StopError marks an error as permanent so the retry loop returns it
// immediately. The store wraps "message not found" this way: retrying
// a missing key only delays the caller.
type StopError struct {
	Err error
}

func (s StopError) Error() string { return s.Err.Error() }

func (s StopError) Unwrap() error { return s.Err }

// Stop wraps an error to halt retries immediately.
func Stop(err error) error {
	return StopError{Err: err}
}

// IsStopError reports whether err carries a StopError anywhere in its
// chain.
func IsStopError(err error) bool {
	var stopErr StopError
	return errors.As(err, &stopErr)
}

// WithRetry runs fn until it succeeds or the attempts are exhausted,
// sleeping per the backoff schedule between attempts. Every error is
// treated as transient.
func WithRetry(ctx context.Context, fn RetryableFunc, config BackoffConfig) error {
	return run(ctx, fn, config, false)
}

// WithRetryAdvanced is WithRetry that honours StopError: a stopped
// attempt returns the wrapped error without further tries.
func WithRetryAdvanced(ctx context.Context, fn RetryableFunc, config BackoffConfig) error {
	return run(ctx, fn, config, true)
}

func run(ctx context.Context, fn RetryableFunc, config BackoffConfig, respectStop bool) error {
	backoff := ExponentialBackoff(config)

	var lastErr error
	var attempts int
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		attempts = attempt + 1
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if respectStop && IsStopError(err) {
			var stopErr StopError
			errors.As(err, &stopErr)
			logger.Debugf("retry: permanent error on attempt %d, giving up: %v", attempts, stopErr.Err)
			return stopErr.Err
		}
		if attempt < config.MaxRetries {
			logger.Debugf("retry: attempt %d of %d failed: %v", attempts, config.MaxRetries+1, err)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}
