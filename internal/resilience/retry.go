// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Maximum number of retry attempts
	InitialInterval time.Duration                // Initial retry interval
	MaxInterval     time.Duration                // Maximum retry interval, 0 for no cap
	Multiplier      float64                      // Exponential backoff multiplier (e.g. 2.0 doubles each attempt)
	MaxElapsedTime  time.Duration                // Maximum total time for all retries, 0 for no limit
	Jitter          bool                         // Add up to 25% random jitter to spread retries
	OnRetry         func(attempt int, err error) // Optional callback invoked before each retry

	// TypeBudgets caps retries for specific error types below MaxRetries.
	TypeBudgets map[ErrorType]int
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  2 * time.Minute,
		Jitter:          true,
		OnRetry:         func(attempt int, err error) {},
	}
}

// ModelRetryConfig returns the retry schedule used for language-model calls:
// four retries starting at two seconds and growing by 1.7, with malformed
// replies retried only once.
func ModelRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      4,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      1.7,
		MaxElapsedTime:  3 * time.Minute,
		Jitter:          true,
		OnRetry:         func(attempt int, err error) {},
		TypeBudgets:     map[ErrorType]int{ErrorTypeMalformedResponse: 1},
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// backoff returns the delay before retry number attempt (1-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
	}
	if c.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	d := time.Duration(delay)
	if c.MaxInterval > 0 {
		d = min(d, c.MaxInterval)
	}
	return d
}

// RetryWithBackoff executes an operation with exponential backoff and optional jitter.
// The delay before attempt n is: InitialInterval * Multiplier^(n-1), capped at MaxInterval.
// When Jitter is true, up to 25% random noise is added to spread concurrent retries.
// A Retry-After hint from an HTTPStatusError raises the delay, still within MaxInterval.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error
	start := time.Now()
	perType := make(map[ErrorType]int)

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := config.backoff(attempt)
			if hint, ok := ShouldRetryAfter(lastErr); ok && hint > delay {
				delay = hint
				if config.MaxInterval > 0 {
					delay = min(delay, config.MaxInterval)
				}
			}
			if config.MaxElapsedTime > 0 && time.Since(start)+delay > config.MaxElapsedTime {
				return lastErr
			}

			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		classified := ClassifyError(err)
		if !classified.IsRetryable() {
			return err
		}
		perType[classified.Type]++
		if budget, ok := config.TypeBudgets[classified.Type]; ok && perType[classified.Type] > budget {
			return err
		}
	}

	return lastErr
}

// RetryStats holds statistics about retry operations.
type RetryStats struct {
	TotalAttempts   int           `json:"total_attempts"`
	SuccessfulAfter int           `json:"successful_after"` // 0 if failed, attempt number if succeeded
	TotalDuration   time.Duration `json:"total_duration"`
	LastError       string        `json:"last_error,omitempty"`
	ErrorTypes      []string      `json:"error_types,omitempty"`
}

// RetryWithStats executes an operation with retry and collects statistics.
func RetryWithStats(ctx context.Context, config RetryConfig, operation RetryableOperation) (*RetryStats, error) {
	stats := &RetryStats{
		ErrorTypes: make([]string, 0),
	}

	start := time.Now()

	wrappedOperation := func(ctx context.Context) error {
		stats.TotalAttempts++
		err := operation(ctx)
		if err != nil {
			classified := ClassifyError(err)
			stats.LastError = err.Error()
			stats.ErrorTypes = append(stats.ErrorTypes, classified.Type.String())
		}
		return err
	}

	err := RetryWithBackoff(ctx, config, wrappedOperation)

	stats.TotalDuration = time.Since(start)
	if err == nil {
		stats.SuccessfulAfter = stats.TotalAttempts
	}

	return stats, err
}

// RetryWithCircuitBreaker combines retry logic with circuit breaker protection.
func RetryWithCircuitBreaker(ctx context.Context, retryConfig RetryConfig, cb *CircuitBreaker, operation RetryableOperation) (*RetryStats, error) {
	return RetryWithStats(ctx, retryConfig, func(ctx context.Context) error {
		return cb.Execute(ctx, operation)
	})
}

// ErrorType extensions for retry logic.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeQuotaExceeded:
		return "QuotaExceeded"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeResourceNotFound:
		return "ResourceNotFound"
	case ErrorTypeMalformedResponse:
		return "MalformedResponse"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}

// ShouldRetryAfter returns the upstream's Retry-After hint, if it sent one.
func ShouldRetryAfter(err error) (time.Duration, bool) {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter, true
	}
	return 0, false
}
