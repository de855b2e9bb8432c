// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"leakaudit/internal/taxonomy"
	"leakaudit/internal/verdict"
)

// LabelScore holds per-category counts and rates.
type LabelScore struct {
	Label     string  `json:"label"`
	Expected  int     `json:"expected"`
	Predicted int     `json:"predicted"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Outcome is the scored result for one case.
type Outcome struct {
	Index      int            `json:"index"`
	DocumentID string         `json:"document_id"`
	Expected   []string       `json:"expected"`
	Predicted  []string       `json:"predicted"`
	Exact      bool           `json:"exact_match"`
	Status     verdict.Status `json:"status,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Report aggregates outcomes over a dataset. A case counts as a hit when
// predicted and expected sets intersect or when both are empty.
type Report struct {
	Total                 int          `json:"total"`
	Scored                int          `json:"scored"`
	Skipped               int          `json:"skipped"`
	Exact                 int          `json:"exact"`
	Hits                  int          `json:"hits"`
	HitsNonEmpty          int          `json:"hits_nonempty"`
	AnyPredicted          int          `json:"any_predicted"`
	AnyExpected           int          `json:"any_expected"`
	FalsePositiveRecords  int          `json:"false_positive_records"`
	FalseNegativeRecords  int          `json:"false_negative_records"`
	Inconclusive          int          `json:"inconclusive"`
	ExtractionUnavailable int          `json:"extraction_unavailable"`
	ExactAccuracy         float64      `json:"exact_accuracy"`
	HitRate               float64      `json:"hit_rate"`
	Labels                []LabelScore `json:"labels"`
}

// Scorer accumulates outcomes. It is not safe for concurrent use.
type Scorer struct {
	report Report
	labels map[taxonomy.Category]*LabelScore
}

// NewScorer returns an empty scorer.
func NewScorer() *Scorer {
	s := &Scorer{labels: make(map[taxonomy.Category]*LabelScore, len(taxonomy.Sensitive))}
	for _, c := range taxonomy.Sensitive {
		s.labels[c] = &LabelScore{Label: string(c)}
	}
	return s
}

// sensitive strips none so an empty set stands for "nothing sensitive".
func sensitive(set taxonomy.Set) taxonomy.Set {
	out := taxonomy.NewSet()
	for c := range set {
		if c != taxonomy.None {
			out.Add(c)
		}
	}
	return out
}

// Add scores one case and returns its outcome.
func (s *Scorer) Add(c Case, rec verdict.Record) Outcome {
	gt := sensitive(c.Expected)
	pred := sensitive(rec.CategorySet())

	s.report.Total++
	s.report.Scored++
	exact := pred.Equal(gt)
	if exact {
		s.report.Exact++
	}

	overlap := 0
	for cat := range pred {
		if gt.Has(cat) {
			overlap++
		}
	}
	switch {
	case overlap > 0:
		s.report.Hits++
		s.report.HitsNonEmpty++
	case pred.Len() == 0 && gt.Len() == 0:
		s.report.Hits++
	}
	if pred.Len() > 0 {
		s.report.AnyPredicted++
	}
	if gt.Len() > 0 {
		s.report.AnyExpected++
	}
	if pred.Len() > 0 && gt.Len() == 0 {
		s.report.FalsePositiveRecords++
	}
	if gt.Len() > 0 && pred.Len() == 0 {
		s.report.FalseNegativeRecords++
	}
	if rec.Status == verdict.StatusInconclusive {
		s.report.Inconclusive++
	}
	for _, a := range rec.Annotations {
		if a.Kind == verdict.AnnotationExtractionUnavailable {
			s.report.ExtractionUnavailable++
			break
		}
	}

	for _, cat := range taxonomy.Sensitive {
		ls := s.labels[cat]
		inGT, inPred := gt.Has(cat), pred.Has(cat)
		if inGT {
			ls.Expected++
		}
		if inPred {
			ls.Predicted++
		}
		switch {
		case inGT && inPred:
			ls.TP++
		case inPred:
			ls.FP++
		case inGT:
			ls.FN++
		}
	}

	return Outcome{
		Index:      c.Index,
		DocumentID: rec.DocumentID,
		Expected:   gt.Strings(),
		Predicted:  pred.Strings(),
		Exact:      exact,
		Status:     rec.Status,
	}
}

// Skip records a case that produced no verdict.
func (s *Scorer) Skip(c Case, reason string) Outcome {
	s.report.Total++
	s.report.Skipped++
	return Outcome{
		Index:      c.Index,
		DocumentID: c.Span.DocumentID,
		Expected:   sensitive(c.Expected).Strings(),
		Predicted:  []string{},
		Error:      reason,
	}
}

// Report returns the accumulated scores.
func (s *Scorer) Report() Report {
	r := s.report
	if r.Scored > 0 {
		r.ExactAccuracy = float64(r.Exact) / float64(r.Scored)
		r.HitRate = float64(r.Hits) / float64(r.Scored)
	}
	r.Labels = make([]LabelScore, 0, len(taxonomy.Sensitive))
	for _, cat := range taxonomy.Sensitive {
		ls := *s.labels[cat]
		if ls.TP+ls.FP > 0 {
			ls.Precision = float64(ls.TP) / float64(ls.TP+ls.FP)
		}
		if ls.TP+ls.FN > 0 {
			ls.Recall = float64(ls.TP) / float64(ls.TP+ls.FN)
		}
		r.Labels = append(r.Labels, ls)
	}
	return r
}
