package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// RetryLogger receives retry progress messages
type RetryLogger interface {
	Printf(format string, v ...interface{})
}

// RetryConfig holds configuration for bounded retries
type RetryConfig struct {
	MaxAttempts     int           // total attempts including the first
	InitialDelay    time.Duration // delay before the second attempt
	MaxDelay        time.Duration // upper bound for any delay
	BackoffFactor   float64       // exponential growth per attempt
	Jitter          bool          // add up to 25% random delay
	RetryableErrors []ErrorCode   // codes eligible for another attempt
}

var retryLogger RetryLogger

// DefaultRetryConfig retries transient store failures three times
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeBusy,
		},
	}
}

// RetryableOperation is an operation that can be retried
type RetryableOperation func() error

// SetRetryLogger sets the package-level logger for retry operations
func SetRetryLogger(logger RetryLogger) {
	retryLogger = logger
}

func logRetry(format string, v ...interface{}) {
	if retryLogger != nil {
		retryLogger.Printf(format, v...)
	}
}

// WithRetry executes operation until it succeeds, fails permanently, or runs out of attempts
func WithRetry(ctx context.Context, config *RetryConfig, operation RetryableOperation) error {
	return WithRetryContext(ctx, config, operation, "")
}

// WithRetryContext is WithRetry with an operation name used in log lines and the final error
func WithRetryContext(ctx context.Context, config *RetryConfig, operation RetryableOperation, name string) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if name == "" {
		name = "operation"
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logRetry("%s succeeded after %d attempts", name, attempt+1)
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, config) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)
		logRetry("%s failed (attempt %d/%d), retrying in %v: %v", name, attempt+1, config.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled during retry: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, config.MaxAttempts, lastErr)
}

// RetryQuick retries busy or locked store writes for a short while
func RetryQuick(ctx context.Context, operation RetryableOperation) error {
	return WithRetry(ctx, &RetryConfig{
		MaxAttempts:     4,
		InitialDelay:    25 * time.Millisecond,
		MaxDelay:        500 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy, ErrCodeConnection},
	}, operation)
}

func shouldRetry(err error, config *RetryConfig) bool {
	var opErr *OpError
	if !errors.As(err, &opErr) || !opErr.IsRetryable() {
		return false
	}
	return slices.Contains(config.RetryableErrors, opErr.Code)
}

func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for range attempt {
		multiplier *= config.BackoffFactor
	}
	delay := time.Duration(float64(config.InitialDelay) * multiplier)

	if config.Jitter && delay > 0 {
		if spread := int64(float64(delay) * 0.25); spread > 0 {
			delay += time.Duration(rand.Int64N(spread))
		}
	}

	return min(delay, config.MaxDelay)
}
