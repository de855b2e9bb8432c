// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/observability"
	"leakaudit/internal/resilience"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

func fastReliable(inner Extractor) *Reliable {
	cfg := DefaultReliableConfig()
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = 2 * time.Millisecond
	cfg.Retry.Jitter = false
	return NewReliable(inner, cfg)
}

func TestReliable_RecoversFromTransient(t *testing.T) {
	text := "db_password=CorrectHorse123"
	stub := NewStub().On(text, taxonomy.Credentials).
		FailWith(text, ErrTransientUnavailable, fmt.Errorf("%w: 503", ErrTransientUnavailable))

	out := fastReliable(stub).Analyze(context.Background(), span.Span{Text: text})
	require.True(t, out.Available)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, out.Opinion.Names(taxonomy.Credentials))
}

func TestReliable_TransientExhausted(t *testing.T) {
	text := "anything"
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = ErrTransientUnavailable
	}
	stub := NewStub().FailWith(text, errs...)

	out := fastReliable(stub).Analyze(context.Background(), span.Span{Text: text})
	assert.False(t, out.Available)
	assert.Equal(t, KindTransientUnavailable, out.Kind)
	assert.Equal(t, 5, out.Attempts, "initial call plus four retries")
	assert.ErrorIs(t, out.Err, ErrTransientUnavailable)
}

func TestReliable_MalformedRetriedOnce(t *testing.T) {
	text := "anything"
	stub := NewStub().FailWith(text, ErrMalformedResponse, ErrMalformedResponse, ErrMalformedResponse)

	out := fastReliable(stub).Analyze(context.Background(), span.Span{Text: text})
	assert.False(t, out.Available)
	assert.Equal(t, KindMalformedResponse, out.Kind)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, stub.Calls(text))
}

type slowExtractor struct{ calls atomic.Int32 }

func (s *slowExtractor) Name() string { return "slow" }

func (s *slowExtractor) Extract(ctx context.Context, _ span.Span) (Opinion, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return Opinion{}, ctx.Err()
}

func TestReliable_TimeoutIsTransient(t *testing.T) {
	slow := &slowExtractor{}
	r := fastReliable(slow)
	r.cfg.CallTimeout = 5 * time.Millisecond
	r.cfg.Retry.MaxRetries = 1

	out := r.Analyze(context.Background(), span.Span{Text: "x"})
	assert.False(t, out.Available)
	assert.Equal(t, KindTransientUnavailable, out.Kind)
	assert.EqualValues(t, 2, slow.calls.Load())
}

func TestReliable_OpenBreakerFailsFast(t *testing.T) {
	cbCfg := resilience.DefaultCircuitBreakerConfig("model")
	cbCfg.FailureThreshold = 1
	cbCfg.Timeout = time.Hour
	breaker := resilience.NewCircuitBreaker(cbCfg)

	stub := NewStub().FailWith("a", ErrTransientUnavailable, ErrTransientUnavailable)
	r := fastReliable(stub)
	r.cfg.Breaker = breaker

	out := r.Analyze(context.Background(), span.Span{Text: "a"})
	assert.False(t, out.Available)
	assert.Equal(t, resilience.StateOpen, breaker.GetState())

	out = r.Analyze(context.Background(), span.Span{Text: "b"})
	assert.False(t, out.Available)
	assert.Equal(t, KindTransientUnavailable, out.Kind)
	assert.Equal(t, 0, stub.Calls("b"))
	assert.True(t, resilience.IsCircuitBreakerError(out.Err))
}

func TestReliable_BlankSpanSkipsBackend(t *testing.T) {
	stub := NewStub()
	out := fastReliable(stub).Analyze(context.Background(), span.Span{Text: "  \n"})
	assert.True(t, out.Available)
	assert.Zero(t, out.Opinion.Categories().Len())
	assert.Equal(t, 0, stub.Calls("  \n"))
}

func TestReliable_ObserverRecordsOutcome(t *testing.T) {
	var buf bytes.Buffer
	stub := NewStub().On("x", taxonomy.PII)
	r := fastReliable(stub)
	r.cfg.Observer = observability.NewStandardObserver(observability.ObservabilityDebug, &buf)

	r.Analyze(context.Background(), span.Span{Text: "x", FilePath: "notes.tex"})
	assert.Contains(t, buf.String(), `"component":"extractor"`)
	assert.Contains(t, buf.String(), `"categories":["pii"]`)
}
