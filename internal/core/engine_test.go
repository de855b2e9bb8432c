// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/extractor"
	"leakaudit/internal/observability"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
	"leakaudit/internal/verdict"
)

const passwordSpan = "db_password=CorrectHorse123; host=db.internal.example.com"

func newTestEngine(stub *extractor.Stub) *Engine {
	cfg := extractor.DefaultReliableConfig()
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = 5 * time.Millisecond
	cfg.Retry.Jitter = false
	return NewEngine(EngineConfig{Extractor: extractor.NewReliable(stub, cfg)})
}

func testSpan(text string) span.Span {
	return span.Span{
		DocumentID: "2401.00001",
		FilePath:   "main.tex",
		SourceKind: span.KindComment,
		ByteRange:  span.ByteRange{Start: 100, End: 100 + len(text)},
		Text:       text,
	}
}

func TestEngine_AnalyzeSpan(t *testing.T) {
	stub := extractor.NewStub().On(passwordSpan, taxonomy.Credentials, taxonomy.NetworkIdentifiers)
	engine := newTestEngine(stub)

	rec, err := engine.AnalyzeSpan(context.Background(), testSpan(passwordSpan))
	require.NoError(t, err)

	assert.Equal(t, []string{"credentials", "network_identifiers"}, rec.Categories)
	assert.Equal(t, verdict.StatusConfirmed, rec.Status)
	assert.Equal(t, extractor.ContractVersion, rec.ContractVersion)
	assert.Equal(t, engine.Library().Version(), rec.SignatureVersion)
	assert.Equal(t, testSpan(passwordSpan).Key(), rec.SpanKey)
	assert.Empty(t, rec.Text)
	assert.Equal(t, 1, stub.Calls(passwordSpan))
}

func TestEngine_IncludeText(t *testing.T) {
	engine := NewEngine(EngineConfig{
		Extractor:   extractor.NewReliable(extractor.NewStub(), extractor.DefaultReliableConfig()),
		IncludeText: true,
	})
	rec, err := engine.AnalyzeSpan(context.Background(), testSpan("nothing to see"))
	require.NoError(t, err)
	assert.Equal(t, "nothing to see", rec.Text)
	assert.Equal(t, []string{"none"}, rec.Categories)
}

func TestEngine_WithoutExtractor(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	assert.False(t, engine.HasExtractor())

	v, outcome := engine.Analyze(context.Background(), testSpan(passwordSpan))
	assert.False(t, outcome.Available)
	assert.ErrorIs(t, outcome.Err, ErrNoExtractor)
	assert.Equal(t, []taxonomy.Category{taxonomy.Credentials}, v.Sorted())
	assert.Equal(t, verdict.StatusInconclusive, v.Status())
}

func TestEngine_DegradesOnMalformedReplies(t *testing.T) {
	text := "Reviewer 2 asked us to cut Section 4; I think they're wrong but let's comply"
	stub := extractor.NewStub().FailWith(text, extractor.ErrMalformedResponse, extractor.ErrMalformedResponse)
	engine := newTestEngine(stub)

	v, outcome := engine.Analyze(context.Background(), testSpan(text))
	assert.Equal(t, extractor.KindMalformedResponse, outcome.Kind)
	assert.Equal(t, 2, outcome.Attempts)
	assert.True(t, v.IsNone())
	assert.True(t, v.HasAnnotation(verdict.AnnotationExtractionUnavailable))
}

func TestEngine_CancelledContext(t *testing.T) {
	engine := newTestEngine(extractor.NewStub())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.AnalyzeSpan(ctx, testSpan(passwordSpan))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Observer(t *testing.T) {
	var buf bytes.Buffer
	obs := observability.NewStandardObserver(observability.ObservabilityMetrics, &buf)

	engine := newTestEngine(extractor.NewStub())
	engine.SetObserver(obs)
	_, err := engine.AnalyzeSpan(context.Background(), testSpan(passwordSpan))
	require.NoError(t, err)

	var components []string
	for _, st := range obs.Stats() {
		components = append(components, st.Component+"."+st.Operation)
	}
	assert.Contains(t, components, "engine.analyze")
	assert.Contains(t, components, "matcher.match")
}
