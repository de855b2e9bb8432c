// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leakaudit/internal/observability"
	"leakaudit/internal/resilience"
	"leakaudit/internal/span"
)

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 60 * time.Second

// ReliableConfig configures the Reliable decorator.
type ReliableConfig struct {
	CallTimeout time.Duration
	Retry       resilience.RetryConfig
	// Breaker is optional; share one breaker across all workers.
	Breaker  *resilience.CircuitBreaker
	Observer *observability.StandardObserver
}

// DefaultReliableConfig returns the standard model-call policy.
func DefaultReliableConfig() ReliableConfig {
	return ReliableConfig{
		CallTimeout: DefaultCallTimeout,
		Retry:       resilience.ModelRetryConfig(),
	}
}

// Reliable adds per-call timeouts, retries and circuit breaking to an
// Extractor, and turns the final failure into an unavailable Outcome.
type Reliable struct {
	inner Extractor
	cfg   ReliableConfig
}

// NewReliable wraps inner.
func NewReliable(inner Extractor, cfg ReliableConfig) *Reliable {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Reliable{inner: inner, cfg: cfg}
}

func (r *Reliable) Name() string { return r.inner.Name() }

// Analyze returns the opinion for s or the reason there is none. Blank spans
// are answered without calling the backend.
func (r *Reliable) Analyze(ctx context.Context, s span.Span) Outcome {
	if strings.TrimSpace(s.Text) == "" {
		out := Available(OpinionFromCategories(DefaultContract().Version))
		out.Attempts = 0
		return out
	}

	finish := r.cfg.Observer.StartTiming("extractor", "extract", s.FilePath)

	var opinion Opinion
	attempt := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()

		op, err := r.inner.Extract(callCtx, s)
		if err != nil {
			if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				err = &resilience.ClassifiedError{
					Original:  fmt.Errorf("%w: %w", ErrTransientUnavailable, err),
					Type:      resilience.ErrorTypeTimeout,
					Message:   fmt.Sprintf("extractor call exceeded %s", r.cfg.CallTimeout),
					Retryable: true,
				}
			}
			return classify(err)
		}
		opinion = op
		return nil
	}

	retryCfg := r.cfg.Retry
	userOnRetry := retryCfg.OnRetry
	retryCfg.OnRetry = func(n int, err error) {
		if userOnRetry != nil {
			userOnRetry(n, err)
		}
		if d := r.debug(); d != nil {
			d.LogDetail("extractor", fmt.Sprintf("retry %d for %s after %v", n, s.Key(), err))
		}
	}

	var (
		stats *resilience.RetryStats
		err   error
	)
	if r.cfg.Breaker != nil {
		stats, err = resilience.RetryWithCircuitBreaker(ctx, retryCfg, r.cfg.Breaker, attempt)
	} else {
		stats, err = resilience.RetryWithStats(ctx, retryCfg, attempt)
	}

	if err != nil {
		kind := KindOf(err)
		finish(false, map[string]interface{}{
			"attempts": stats.TotalAttempts,
			"kind":     string(kind),
			"error":    err.Error(),
		})
		out := Unavailable(kind, err)
		out.Attempts = stats.TotalAttempts
		return out
	}

	finish(true, map[string]interface{}{
		"attempts":   stats.TotalAttempts,
		"categories": opinion.Categories().Strings(),
	})
	out := Available(opinion)
	out.Attempts = stats.TotalAttempts
	return out
}

func (r *Reliable) debug() *observability.DebugObserver {
	if r.cfg.Observer == nil {
		return nil
	}
	return r.cfg.Observer.DebugObserver
}
