// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"

	"leakaudit/internal/arbiter"
	"leakaudit/internal/extractor"
	"leakaudit/internal/matcher"
	"leakaudit/internal/observability"
	"leakaudit/internal/span"
	"leakaudit/internal/verdict"
)

// ErrNoExtractor is reported on every span when the engine runs without an
// entity extractor.
var ErrNoExtractor = errors.New("no entity extractor configured")

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	// Library defaults to the process-wide signature library.
	Library *matcher.Library
	// Extractor may be nil; only high-tier structural findings survive then.
	Extractor   *extractor.Reliable
	Observer    *observability.StandardObserver
	IncludeText bool
}

// Engine runs matcher, extractor and arbiter over single spans. It is safe
// for concurrent use.
type Engine struct {
	library   *matcher.Library
	extractor *extractor.Reliable
	observer  *observability.StandardObserver
	options   verdict.RecordOptions
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	lib := cfg.Library
	if lib == nil {
		lib = matcher.Default()
	}
	e := &Engine{
		extractor: cfg.Extractor,
		options: verdict.RecordOptions{
			ContractVersion:  extractor.DefaultContract().Version,
			SignatureVersion: lib.Version(),
			IncludeText:      cfg.IncludeText,
		},
		library: lib,
	}
	e.SetObserver(cfg.Observer)
	return e
}

var _ observability.Observable = (*Engine)(nil)

func (e *Engine) GetComponentName() string { return "engine" }

// SetObserver attaches observer to the engine and its matcher.
func (e *Engine) SetObserver(observer *observability.StandardObserver) {
	e.observer = observer
	e.library = e.library.WithObserver(observer)
}

// Library returns the signature library in use.
func (e *Engine) Library() *matcher.Library { return e.library }

// HasExtractor reports whether semantic categories can be admitted.
func (e *Engine) HasExtractor() bool { return e.extractor != nil }

// Analyze decides the verdict for s. It never fails; the outcome explains
// a missing opinion.
func (e *Engine) Analyze(ctx context.Context, s span.Span) (verdict.Verdict, extractor.Outcome) {
	finish := e.observer.StartTiming("engine", "analyze", s.FilePath)

	matches := e.library.Match(s)

	var outcome extractor.Outcome
	if e.extractor != nil {
		outcome = e.extractor.Analyze(ctx, s)
	} else {
		outcome = extractor.Unavailable(extractor.KindTransientUnavailable, ErrNoExtractor)
	}

	v := arbiter.Reconcile(s, matches, outcome)
	finish(true, map[string]interface{}{
		"matches":    len(matches),
		"categories": v.Categories().Strings(),
		"status":     string(v.Status()),
	})
	return v, outcome
}

// AnalyzeSpan returns the output record for s. The only error is the
// context's: a record produced after cancellation must be discarded.
func (e *Engine) AnalyzeSpan(ctx context.Context, s span.Span) (verdict.Record, error) {
	if err := ctx.Err(); err != nil {
		return verdict.Record{}, err
	}
	v, _ := e.Analyze(ctx, s)
	if err := ctx.Err(); err != nil {
		return verdict.Record{}, err
	}
	return verdict.NewRecord(s, v, e.options), nil
}
