// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/span"
	"leakaudit/internal/verdict"
)

func record(doc, file string, start int, status verdict.Status, cats ...string) verdict.Record {
	if len(cats) == 0 {
		cats = []string{"none"}
	}
	return verdict.Record{
		DocumentID: doc,
		FilePath:   file,
		ByteRange:  span.ByteRange{Start: start, End: start + 10},
		Categories: cats,
		Status:     status,
	}
}

func TestAggregator_CommitAndDiscard(t *testing.T) {
	agg := New()

	agg.Begin("a")
	agg.Add("a", record("a", "main.tex", 10, verdict.StatusConfirmed, "credentials"))
	agg.Begin("b")
	agg.Add("b", record("b", "main.tex", 0, verdict.StatusConfirmed, "pii"))

	assert.Empty(t, agg.Records(), "staged records are not visible")
	assert.Equal(t, []string{"a", "b"}, agg.Pending())

	agg.Commit("a")
	agg.Discard("b")

	recs := agg.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].DocumentID)
	assert.Empty(t, agg.Pending())

	st := agg.Stats()
	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, 1, st.DiscardedDocuments)

	// Late adds after a discard start a new staging area that is never committed.
	agg.Add("b", record("b", "main.tex", 0, verdict.StatusConfirmed, "pii"))
	assert.Len(t, agg.Records(), 1)
}

func TestAggregator_SortedExport(t *testing.T) {
	agg := New()
	agg.Begin("doc2")
	agg.Add("doc2", record("doc2", "a.tex", 5, verdict.StatusConfirmed))
	agg.Commit("doc2")

	agg.Begin("doc1")
	agg.Add("doc1", record("doc1", "b.tex", 1, verdict.StatusConfirmed))
	agg.Add("doc1", record("doc1", "a.tex", 90, verdict.StatusConfirmed))
	agg.Add("doc1", record("doc1", "a.tex", 3, verdict.StatusConfirmed))
	agg.Commit("doc1")

	var got []string
	for _, r := range agg.Records() {
		got = append(got, fmt.Sprintf("%s/%s@%d", r.DocumentID, r.FilePath, r.ByteRange.Start))
	}
	assert.Equal(t, []string{"doc1/a.tex@3", "doc1/a.tex@90", "doc1/b.tex@1", "doc2/a.tex@5"}, got)
}

func TestAggregator_Stats(t *testing.T) {
	agg := New()
	agg.Begin("d")
	agg.Add("d", record("d", "f", 0, verdict.StatusConfirmed, "credentials", "network_identifiers"))
	agg.Add("d", record("d", "f", 20, verdict.StatusConfirmed))
	unavailable := record("d", "f", 40, verdict.StatusInconclusive)
	unavailable.Annotations = []verdict.Annotation{{Kind: verdict.AnnotationExtractionUnavailable}}
	agg.Add("d", unavailable)
	agg.Commit("d")

	st := agg.Stats()
	assert.Equal(t, 3, st.Spans)
	assert.Equal(t, 1, st.Flagged)
	assert.Equal(t, 2, st.Confirmed)
	assert.Equal(t, 1, st.Inconclusive)
	assert.Equal(t, 1, st.ExtractionUnavailable)
	assert.Equal(t, map[string]int{"credentials": 1, "network_identifiers": 1, "none": 2}, st.ByCategory)
	assert.Len(t, agg.Flagged(), 1)
}

func TestAggregator_Concurrent(t *testing.T) {
	agg := New()
	var wg sync.WaitGroup
	for d := 0; d < 20; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			id := fmt.Sprintf("doc%02d", d)
			agg.Begin(id)
			for i := 0; i < 10; i++ {
				agg.Add(id, record(id, "f", i, verdict.StatusConfirmed))
			}
			if d%2 == 0 {
				agg.Commit(id)
			} else {
				agg.Discard(id)
			}
		}(d)
	}
	wg.Wait()

	st := agg.Stats()
	assert.Equal(t, 10, st.Documents)
	assert.Equal(t, 10, st.DiscardedDocuments)
	assert.Equal(t, 100, st.Spans)
}

func TestCategoryOrder(t *testing.T) {
	assert.Equal(t, []string{"credentials", "network_identifiers", "pii", "conflict", "peerreview", "none"}, CategoryOrder())
}
