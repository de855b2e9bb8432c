// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // calls flow to the upstream
	StateOpen                                // calls are rejected without reaching the upstream
	StateHalfOpen                            // a few trial calls decide whether to close again
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive upstream failures that open the circuit
	SuccessThreshold int           // trial successes that close it again
	Timeout          time.Duration // time spent open before probing
	MaxRequests      int           // concurrent trials while half-open
	IsFailure        func(error) bool
	OnStateChange    func(name string, from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig returns the breaker used in front of the
// entity extractor.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          30 * time.Second,
		MaxRequests:      3,
		IsFailure:        IsUpstreamFailure,
	}
}

// IsUpstreamFailure counts outages, rate limits and timeouts against the
// breaker. Malformed replies and auth failures do not: the upstream is up.
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	classified := ClassifyError(err)
	if classified.Type == ErrorTypeMalformedResponse {
		return false
	}
	return classified.Retryable
}

// CircuitBreaker is shared by every worker calling one upstream. It is safe
// for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CircuitBreakerState
	failures  int
	successes int
	trials    int
	openedAt  time.Time
	lastFail  time.Time
	rejected  int64
}

// NewCircuitBreaker creates a closed breaker. Zero thresholds fall back to
// the defaults.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(config.Name)
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = def.MaxRequests
	}
	if config.IsFailure == nil {
		config.IsFailure = def.IsFailure
	}
	return &CircuitBreaker{cfg: config, now: time.Now, state: StateClosed}
}

// Execute runs fn unless the circuit is open. A call the caller cancelled is
// neither a success nor a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		cb.abandon()
		return err
	}
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			cb.rejected++
			return cb.rejection(fmt.Sprintf("%d consecutive failures, last %s ago",
				cb.failures, cb.now().Sub(cb.lastFail).Round(time.Second)))
		}
		cb.transition(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.trials >= cb.cfg.MaxRequests {
			cb.rejected++
			return cb.rejection(fmt.Sprintf("%d trials already in flight", cb.trials))
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) rejection(detail string) *CircuitBreakerError {
	return &CircuitBreakerError{
		Name:    cb.cfg.Name,
		State:   cb.state,
		Message: fmt.Sprintf("%s circuit is %s (%s)", cb.cfg.Name, cb.state, detail),
	}
}

func (cb *CircuitBreaker) abandon() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen && cb.trials > 0 {
		cb.trials--
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.trials > 0 {
		cb.trials--
	}

	if cb.cfg.IsFailure(err) {
		cb.failures++
		cb.lastFail = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.open()
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.transition(StateOpen)
}

// transition resets the per-state counters and fires OnStateChange.
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.successes = 0
	cb.trials = 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		Name:            cb.cfg.Name,
		State:           cb.state,
		FailureCount:    cb.failures,
		SuccessCount:    cb.successes,
		TrialCount:      cb.trials,
		Rejected:        cb.rejected,
		LastFailureTime: cb.lastFail,
	}
}

// Reset closes the circuit and clears failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.lastFail = time.Time{}
}

// CircuitBreakerStats holds circuit breaker statistics
type CircuitBreakerStats struct {
	Name            string              `json:"name"`
	State           CircuitBreakerState `json:"state"`
	FailureCount    int                 `json:"failure_count"`
	SuccessCount    int                 `json:"success_count"`
	TrialCount      int                 `json:"trial_count"`
	Rejected        int64               `json:"rejected"`
	LastFailureTime time.Time           `json:"last_failure_time"`
}

// CircuitBreakerError is returned for calls rejected by an open circuit.
type CircuitBreakerError struct {
	Name    string
	State   CircuitBreakerState
	Message string
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
