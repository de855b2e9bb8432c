// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"leakaudit/internal/aggregate"
	"leakaudit/internal/formatters"
	"leakaudit/internal/verdict"
)

// RedactedPlaceholder replaces evidence when redaction is requested.
const RedactedPlaceholder = "[REDACTED]"

// Response is the top-level structure of JSON and YAML output.
type Response struct {
	Records []verdict.Record `json:"records" yaml:"records"`
	Summary Summary          `json:"summary" yaml:"summary"`
}

// Summary counts the rendered records.
type Summary struct {
	Records               int            `json:"records" yaml:"records"`
	Flagged               int            `json:"flagged" yaml:"flagged"`
	Confirmed             int            `json:"confirmed" yaml:"confirmed"`
	Inconclusive          int            `json:"inconclusive" yaml:"inconclusive"`
	ExtractionUnavailable int            `json:"extraction_unavailable" yaml:"extraction_unavailable"`
	ByCategory            map[string]int `json:"by_category" yaml:"by_category"`
}

// PrepareRecords applies FlaggedOnly and RedactEvidence, returning copies.
func PrepareRecords(records []verdict.Record, options formatters.FormatterOptions) []verdict.Record {
	out := make([]verdict.Record, 0, len(records))
	for _, rec := range records {
		if options.FlaggedOnly && !rec.Flagged() {
			continue
		}
		if options.RedactEvidence {
			rec = redact(rec)
		}
		out = append(out, rec)
	}
	return out
}

func redact(rec verdict.Record) verdict.Record {
	ev := make(map[string][]string, len(rec.Evidence))
	for c, items := range rec.Evidence {
		masked := make([]string, len(items))
		for i := range items {
			masked[i] = RedactedPlaceholder
		}
		ev[c] = masked
	}
	rec.Evidence = ev
	if rec.Text != "" {
		rec.Text = RedactedPlaceholder
	}
	return rec
}

// BuildResponse wraps prepared records with their summary.
func BuildResponse(records []verdict.Record, options formatters.FormatterOptions) Response {
	prepared := PrepareRecords(records, options)
	return Response{Records: prepared, Summary: Summarize(prepared)}
}

// Summarize counts records the same way the aggregator does.
func Summarize(records []verdict.Record) Summary {
	agg := aggregate.New()
	for _, rec := range records {
		agg.Add(rec.DocumentID, rec)
	}
	for _, rec := range records {
		agg.Commit(rec.DocumentID)
	}
	st := agg.Stats()
	return Summary{
		Records:               st.Spans,
		Flagged:               st.Flagged,
		Confirmed:             st.Confirmed,
		Inconclusive:          st.Inconclusive,
		ExtractionUnavailable: st.ExtractionUnavailable,
		ByCategory:            st.ByCategory,
	}
}

// EvidenceList flattens evidence in canonical category order as
// "category: item" strings.
func EvidenceList(rec verdict.Record) []string {
	var out []string
	for _, c := range aggregate.CategoryOrder() {
		for _, item := range rec.Evidence[c] {
			out = append(out, c+": "+item)
		}
	}
	return out
}
