// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package verdict holds the immutable per-span classification and the
// output record handed to the aggregator.
package verdict

import (
	"leakaudit/internal/taxonomy"
)

// Status tells confirmed results from ones the engine could not settle.
type Status string

const (
	StatusConfirmed    Status = "confirmed"
	StatusInconclusive Status = "inconclusive"
)

// Annotation kinds.
const (
	// AnnotationExtractionUnavailable: the extractor gave no opinion.
	AnnotationExtractionUnavailable = "extraction_unavailable"
	// AnnotationAmbiguousEvidence: a category had some support but was withheld.
	AnnotationAmbiguousEvidence = "ambiguous_evidence"
	// AnnotationReclassified: a category was moved to another by a rule.
	AnnotationReclassified = "reclassified"
)

// Annotation explains a decision the arbiter made.
type Annotation struct {
	Kind     string            `json:"kind" yaml:"kind"`
	Category taxonomy.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Reason   string            `json:"reason" yaml:"reason"`
}

// Inconclusive reports whether the annotation leaves the verdict unsettled.
func (a Annotation) Inconclusive() bool {
	return a.Kind == AnnotationExtractionUnavailable || a.Kind == AnnotationAmbiguousEvidence
}

// Verdict is the final category assignment for one span. It is either
// exactly {none} or a non-empty subset of the five sensitive categories.
type Verdict struct {
	categories  taxonomy.Set
	evidence    map[taxonomy.Category][]string
	annotations []Annotation
}

// New builds a verdict. Evidence for categories outside the admitted set is
// dropped and the set is normalized so none never co-occurs with another
// category.
func New(admitted taxonomy.Set, evidence map[taxonomy.Category][]string, annotations []Annotation) Verdict {
	cats := admitted.Normalize()
	ev := make(map[taxonomy.Category][]string, len(evidence))
	for c, items := range evidence {
		if c == taxonomy.None || !cats.Has(c) || len(items) == 0 {
			continue
		}
		ev[c] = append([]string(nil), items...)
	}
	return Verdict{
		categories:  cats,
		evidence:    ev,
		annotations: append([]Annotation(nil), annotations...),
	}
}

// None returns a {none} verdict with the given annotations.
func None(annotations ...Annotation) Verdict {
	return New(taxonomy.NewSet(), nil, annotations)
}

// Categories returns a copy of the category set.
func (v Verdict) Categories() taxonomy.Set {
	out := taxonomy.NewSet()
	for c := range v.categories {
		out.Add(c)
	}
	if out.Len() == 0 {
		out.Add(taxonomy.None)
	}
	return out
}

// Sorted returns the categories in canonical order.
func (v Verdict) Sorted() []taxonomy.Category { return v.Categories().Sorted() }

// Has reports whether c is in the verdict.
func (v Verdict) Has(c taxonomy.Category) bool { return v.Categories().Has(c) }

// IsNone reports whether the verdict is {none}.
func (v Verdict) IsNone() bool { return v.Categories().IsNone() }

// Evidence returns the supporting substrings for c.
func (v Verdict) Evidence(c taxonomy.Category) []string {
	return append([]string(nil), v.evidence[c]...)
}

// EvidenceMap returns all evidence keyed by category name.
func (v Verdict) EvidenceMap() map[string][]string {
	out := make(map[string][]string, len(v.evidence))
	for c, items := range v.evidence {
		out[string(c)] = append([]string(nil), items...)
	}
	return out
}

// Annotations returns a copy of the decision notes.
func (v Verdict) Annotations() []Annotation {
	return append([]Annotation(nil), v.annotations...)
}

// Status is inconclusive when extraction was unavailable or a category was
// withheld, confirmed otherwise.
func (v Verdict) Status() Status {
	for _, a := range v.annotations {
		if a.Inconclusive() {
			return StatusInconclusive
		}
	}
	return StatusConfirmed
}

// HasAnnotation reports whether an annotation of kind is present.
func (v Verdict) HasAnnotation(kind string) bool {
	for _, a := range v.annotations {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
