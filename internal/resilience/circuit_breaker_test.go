// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cfg.OnStateChange = func(name string, from, to CircuitBreakerState) {
		transitions = append(transitions, from.String()+">"+to.String())
	}
	cb := NewCircuitBreaker(cfg)

	fail := func(ctx context.Context) error { return NewTransientError("down", nil) }
	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, IsCircuitBreakerError(err))
	assert.Equal(t, ErrorTypeServiceUnavailable, ClassifyError(err).Type)
	assert.Equal(t, []string{"closed>open"}, transitions)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []string{"closed>open", "open>closed"}, transitions)
}

func TestCircuitBreaker_MalformedDoesNotTrip(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)

	cb.Execute(context.Background(), func(ctx context.Context) error {
		return NewMalformedResponseError("bad", nil)
	})
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 1
	cfg.SuccessThreshold = 1
	cfg.Timeout = time.Millisecond
	cb := NewCircuitBreaker(cfg)

	cb.Execute(context.Background(), func(ctx context.Context) error { return NewTransientError("down", nil) })
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Zero(t, cb.GetStats().FailureCount)
}

func TestCircuitBreaker_CallerCancellationIgnored(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CountsRejections(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 1
	cfg.Timeout = time.Minute
	cb := NewCircuitBreaker(cfg)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.Execute(context.Background(), func(ctx context.Context) error { return NewTransientError("down", nil) })
	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	}
	stats := cb.GetStats()
	assert.Equal(t, int64(3), stats.Rejected)
	assert.Equal(t, StateOpen, stats.State)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState(), "one trial success is below the threshold of three")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("model")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Minute
	cb := NewCircuitBreaker(cfg)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	down := func(ctx context.Context) error { return NewTransientError("down", nil) }
	cb.Execute(context.Background(), down)
	cb.Execute(context.Background(), down)
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Minute)
	cb.Execute(context.Background(), down)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
}
