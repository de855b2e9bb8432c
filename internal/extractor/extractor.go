// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extractor wraps language-model classification of a span behind a
// small interface with a scripted stub and live HTTP adapters.
package extractor

import (
	"context"
	"errors"

	"leakaudit/internal/resilience"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

var (
	// ErrTransientUnavailable marks an upstream outage, rate limit or timeout.
	ErrTransientUnavailable = errors.New("transient_unavailable")
	// ErrMalformedResponse marks a reply outside the agreed vocabulary.
	ErrMalformedResponse = errors.New("malformed_response")
)

// ErrorKind names why an opinion is missing.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindTransientUnavailable ErrorKind = "transient_unavailable"
	KindMalformedResponse    ErrorKind = "malformed_response"
)

// Claim is one category the extractor asserts, with the substring that
// supports it when the backend reports one.
type Claim struct {
	Category taxonomy.Category `json:"category"`
	Evidence string            `json:"evidence,omitempty"`
	Note     string            `json:"note,omitempty"`
}

// Opinion is the extractor's answer for one span. An opinion with no claims
// means the extractor found nothing.
type Opinion struct {
	Claims          []Claim `json:"claims"`
	ContractVersion string  `json:"contract_version"`
	Raw             string  `json:"raw,omitempty"`
}

// Categories returns the claimed categories.
func (o Opinion) Categories() taxonomy.Set {
	s := taxonomy.NewSet()
	for _, c := range o.Claims {
		if c.Category != taxonomy.None {
			s.Add(c.Category)
		}
	}
	return s
}

// Names reports whether the opinion claims c.
func (o Opinion) Names(c taxonomy.Category) bool {
	for _, claim := range o.Claims {
		if claim.Category == c {
			return true
		}
	}
	return false
}

// Evidence returns the non-empty evidence strings claimed for c.
func (o Opinion) Evidence(c taxonomy.Category) []string {
	var out []string
	for _, claim := range o.Claims {
		if claim.Category == c && claim.Evidence != "" {
			out = append(out, claim.Evidence)
		}
	}
	return out
}

// OpinionFromCategories builds an opinion whose claims carry no evidence.
func OpinionFromCategories(version string, cats ...taxonomy.Category) Opinion {
	op := Opinion{ContractVersion: version, Claims: []Claim{}}
	for _, c := range cats {
		if c == taxonomy.None {
			continue
		}
		op.Claims = append(op.Claims, Claim{Category: c})
	}
	return op
}

// Extractor classifies a single span. Implementations must be safe for
// concurrent use and should return errors wrapping ErrTransientUnavailable or
// ErrMalformedResponse.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, s span.Span) (Opinion, error)
}

// Outcome is what the arbiter receives: either an opinion or the reason
// there is none.
type Outcome struct {
	Opinion   Opinion
	Available bool
	Kind      ErrorKind
	Err       error
	Attempts  int
}

// Unavailable builds a no-opinion outcome.
func Unavailable(kind ErrorKind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}

// Available wraps a successful opinion.
func Available(op Opinion) Outcome {
	return Outcome{Opinion: op, Available: true, Attempts: 1}
}

// KindOf maps an error to the extractor error taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrMalformedResponse) {
		return KindMalformedResponse
	}
	if c := resilience.ClassifyError(err); c != nil && c.Type == resilience.ErrorTypeMalformedResponse {
		return KindMalformedResponse
	}
	return KindTransientUnavailable
}

// classify attaches a retry classification to an adapter error so the retry
// loop and circuit breaker treat it consistently.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedResponse):
		return resilience.NewMalformedResponseError(err.Error(), err)
	}
	if c := resilience.ClassifyError(err); c.Type == resilience.ErrorTypeUnknown && errors.Is(err, ErrTransientUnavailable) {
		return resilience.NewTransientError(err.Error(), err)
	}
	return err
}
