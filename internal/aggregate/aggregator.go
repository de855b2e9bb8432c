// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package aggregate stores per-span records and releases them per document,
// all at once or not at all.
package aggregate

import (
	"sort"
	"sync"

	"leakaudit/internal/taxonomy"
	"leakaudit/internal/verdict"
)

// Stats summarizes the committed records.
type Stats struct {
	Documents             int            `json:"documents" yaml:"documents"`
	DiscardedDocuments    int            `json:"discarded_documents" yaml:"discarded_documents"`
	Spans                 int            `json:"spans" yaml:"spans"`
	Flagged               int            `json:"flagged" yaml:"flagged"`
	ByCategory            map[string]int `json:"by_category" yaml:"by_category"`
	Confirmed             int            `json:"confirmed" yaml:"confirmed"`
	Inconclusive          int            `json:"inconclusive" yaml:"inconclusive"`
	ExtractionUnavailable int            `json:"extraction_unavailable" yaml:"extraction_unavailable"`
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	staged    map[string][]verdict.Record
	committed []verdict.Record
	documents map[string]bool
	discarded int
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		staged:    make(map[string][]verdict.Record),
		documents: make(map[string]bool),
	}
}

// Begin opens a staging area for documentID, dropping anything staged
// earlier under the same id.
func (a *Aggregator) Begin(documentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.staged[documentID] = nil
}

// Add stages rec under documentID. Adding to a document that was never
// begun begins it.
func (a *Aggregator) Add(documentID string, rec verdict.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.staged[documentID] = append(a.staged[documentID], rec)
}

// Commit publishes everything staged for documentID.
func (a *Aggregator) Commit(documentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs, ok := a.staged[documentID]
	if !ok {
		return
	}
	delete(a.staged, documentID)
	a.committed = append(a.committed, recs...)
	a.documents[documentID] = true
}

// Discard drops everything staged for documentID.
func (a *Aggregator) Discard(documentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.staged[documentID]; !ok {
		return
	}
	delete(a.staged, documentID)
	a.discarded++
}

// Pending returns the ids of documents begun but neither committed nor
// discarded, sorted.
func (a *Aggregator) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.staged))
	for id := range a.staged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Records returns the committed records ordered by document, file and byte
// offset.
func (a *Aggregator) Records() []verdict.Record {
	a.mu.Lock()
	out := append([]verdict.Record(nil), a.committed...)
	a.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return verdict.Less(out[i], out[j]) })
	return out
}

// Flagged returns the committed records with at least one sensitive
// category, in export order.
func (a *Aggregator) Flagged() []verdict.Record {
	var out []verdict.Record
	for _, rec := range a.Records() {
		if rec.Flagged() {
			out = append(out, rec)
		}
	}
	return out
}

// Stats computes the summary of committed records.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Stats{
		Documents:          len(a.documents),
		DiscardedDocuments: a.discarded,
		Spans:              len(a.committed),
		ByCategory:         make(map[string]int),
	}
	for _, rec := range a.committed {
		for _, c := range rec.Categories {
			st.ByCategory[c]++
		}
		if rec.Flagged() {
			st.Flagged++
		}
		if rec.Status == verdict.StatusInconclusive {
			st.Inconclusive++
		} else {
			st.Confirmed++
		}
		if hasAnnotation(rec, verdict.AnnotationExtractionUnavailable) {
			st.ExtractionUnavailable++
		}
	}
	return st
}

// CategoryOrder returns the category names in canonical order, none last.
func CategoryOrder() []string {
	out := make([]string, 0, len(taxonomy.Sensitive)+1)
	for _, c := range taxonomy.Sensitive {
		out = append(out, string(c))
	}
	return append(out, string(taxonomy.None))
}

func hasAnnotation(rec verdict.Record, kind string) bool {
	for _, a := range rec.Annotations {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
