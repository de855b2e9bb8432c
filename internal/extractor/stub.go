// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"sync"

	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

// Stub is a deterministic extractor driven by a script keyed by exact span
// text. Unscripted spans get the default opinion, which is empty unless set.
type Stub struct {
	mu       sync.Mutex
	version  string
	script   map[string]Opinion
	failures map[string][]error
	fallback Opinion
	calls    map[string]int
}

// NewStub returns an empty stub stamped with the default contract version.
func NewStub() *Stub {
	return &Stub{
		version:  DefaultContract().Version,
		script:   make(map[string]Opinion),
		failures: make(map[string][]error),
		fallback: Opinion{ContractVersion: DefaultContract().Version, Claims: []Claim{}},
		calls:    make(map[string]int),
	}
}

func (s *Stub) Name() string { return "stub" }

// On scripts the categories returned for text.
func (s *Stub) On(text string, cats ...taxonomy.Category) *Stub {
	return s.OnOpinion(text, OpinionFromCategories(s.version, cats...))
}

// OnClaims scripts claims with evidence for text.
func (s *Stub) OnClaims(text string, claims ...Claim) *Stub {
	return s.OnOpinion(text, Opinion{ContractVersion: s.version, Claims: claims})
}

// OnOpinion scripts a full opinion for text.
func (s *Stub) OnOpinion(text string, op Opinion) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.ContractVersion == "" {
		op.ContractVersion = s.version
	}
	s.script[text] = op
	return s
}

// FailWith queues errors returned, in order, by the next calls for text.
func (s *Stub) FailWith(text string, errs ...error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[text] = append(s.failures[text], errs...)
	return s
}

// Default sets the opinion for unscripted spans.
func (s *Stub) Default(cats ...taxonomy.Category) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = OpinionFromCategories(s.version, cats...)
	return s
}

// Calls returns how often text was extracted.
func (s *Stub) Calls(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[text]
}

// Extract returns the scripted opinion for the span text.
func (s *Stub) Extract(ctx context.Context, sp span.Span) (Opinion, error) {
	if err := ctx.Err(); err != nil {
		return Opinion{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[sp.Text]++

	if queued := s.failures[sp.Text]; len(queued) > 0 {
		s.failures[sp.Text] = queued[1:]
		return Opinion{}, queued[0]
	}
	if op, ok := s.script[sp.Text]; ok {
		return op, nil
	}
	return s.fallback, nil
}
