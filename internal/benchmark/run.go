// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"context"

	"leakaudit/internal/aggregate"
	"leakaudit/internal/parallel"
	"leakaudit/internal/span"
	"leakaudit/internal/verdict"
)

// Result is a completed benchmark run.
type Result struct {
	Report   Report                    `json:"report"`
	Outcomes []Outcome                 `json:"outcomes"`
	Stats    *parallel.ProcessingStats `json:"-"`
}

// Run analyzes every case through the processor and scores the verdicts.
// Each case is its own document, so a case that times out or is cancelled
// is reported as skipped rather than aborting the run.
func Run(ctx context.Context, cases []Case, processor *parallel.ParallelProcessor, progress parallel.ProgressCallback) (*Result, error) {
	spans := make([]span.Span, len(cases))
	for i, c := range cases {
		spans[i] = c.Span
	}

	agg := aggregate.New()
	stats, err := processor.ProcessSpans(ctx, spans, agg, progress)
	if err != nil {
		return nil, err
	}

	byDocument := make(map[string]verdict.Record, len(cases))
	for _, rec := range agg.Records() {
		byDocument[rec.DocumentID] = rec
	}

	scorer := NewScorer()
	outcomes := make([]Outcome, 0, len(cases))
	for _, c := range cases {
		rec, ok := byDocument[c.Span.DocumentID]
		if !ok {
			outcomes = append(outcomes, scorer.Skip(c, "no verdict: document discarded"))
			continue
		}
		outcomes = append(outcomes, scorer.Add(c, rec))
	}

	return &Result{Report: scorer.Report(), Outcomes: outcomes, Stats: stats}, nil
}

// Misses returns the outcomes whose prediction differs from the label.
func (r *Result) Misses() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Exact {
			out = append(out, o)
		}
	}
	return out
}
