// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"leakaudit/internal/formatters"
	_ "leakaudit/internal/formatters/csv"
	_ "leakaudit/internal/formatters/json"
	_ "leakaudit/internal/formatters/sarif"
	_ "leakaudit/internal/formatters/text"
	_ "leakaudit/internal/formatters/yaml"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
	"leakaudit/internal/verdict"
)

func sampleRecords() []verdict.Record {
	return []verdict.Record{
		{
			DocumentID:      "2401.00001",
			FilePath:        "src/main.tex",
			SourceKind:      span.KindComment,
			ByteRange:       span.ByteRange{Start: 120, End: 178},
			Categories:      []string{"credentials", "network_identifiers"},
			Evidence:        map[string][]string{"credentials": {"CorrectHorse123"}, "network_identifiers": {"db.internal.example.com"}},
			Status:          verdict.StatusConfirmed,
			ContractVersion: "taxonomy-v1",
			SpanKey:         "00000000000000aa",
		},
		{
			DocumentID: "2401.00001",
			FilePath:   "src/appendix.tex",
			ByteRange:  span.ByteRange{Start: 4, End: 40},
			Categories: []string{"none"},
			Evidence:   map[string][]string{},
			Status:     verdict.StatusInconclusive,
			Annotations: []verdict.Annotation{
				{Kind: verdict.AnnotationExtractionUnavailable, Reason: "transient_unavailable: status 503"},
			},
			SpanKey: "00000000000000bb",
		},
	}
}

func TestRegistry_List(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "sarif", "text", "yaml"}, formatters.List())

	_, err := formatters.Export("junit", nil, formatters.FormatterOptions{})
	assert.ErrorContains(t, err, "unsupported format")

	info := formatters.GetFormatInfo("sarif")
	assert.Equal(t, "application/sarif+json", info.MimeType)
	assert.Equal(t, ".sarif", info.Extension)
	assert.Len(t, formatters.GetSupportedFormats(), 5)
}

func TestFormatForPath(t *testing.T) {
	for path, want := range map[string]string{
		"out/findings.sarif": "sarif",
		"report.YML":         "yaml",
		"verdicts.json":      "json",
		"summary.txt":        "text",
	} {
		got, ok := formatters.FormatForPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := formatters.FormatForPath("verdicts")
	assert.False(t, ok)
	_, ok = formatters.FormatForPath("verdicts.xml")
	assert.False(t, ok)
}

func TestJSON(t *testing.T) {
	out, err := formatters.Export("json", sampleRecords(), formatters.FormatterOptions{})
	require.NoError(t, err)

	var resp struct {
		Records []map[string]interface{} `json:"records"`
		Summary struct {
			Records      int            `json:"records"`
			Flagged      int            `json:"flagged"`
			Inconclusive int            `json:"inconclusive"`
			ByCategory   map[string]int `json:"by_category"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, []interface{}{float64(120), float64(178)}, resp.Records[0]["byte_range"])
	assert.Equal(t, 1, resp.Summary.Flagged)
	assert.Equal(t, 1, resp.Summary.Inconclusive)
	assert.Equal(t, 1, resp.Summary.ByCategory["credentials"])
}

func TestJSON_CompactAndFlaggedOnly(t *testing.T) {
	out, err := formatters.Export("json", sampleRecords(), formatters.FormatterOptions{Compact: true, FlaggedOnly: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var rec verdict.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "src/main.tex", rec.FilePath)
	assert.Equal(t, span.ByteRange{Start: 120, End: 178}, rec.ByteRange)
}

func TestRedactEvidence(t *testing.T) {
	out, err := formatters.Export("json", sampleRecords(), formatters.FormatterOptions{RedactEvidence: true})
	require.NoError(t, err)
	assert.NotContains(t, out, "CorrectHorse123")
	assert.Contains(t, out, "[REDACTED]")

	// The caller's records are untouched.
	recs := sampleRecords()
	_, err = formatters.Export("csv", recs, formatters.FormatterOptions{RedactEvidence: true})
	require.NoError(t, err)
	assert.Equal(t, "CorrectHorse123", recs[0].Evidence["credentials"][0])
}

func TestYAML(t *testing.T) {
	out, err := formatters.Export("yaml", sampleRecords(), formatters.FormatterOptions{})
	require.NoError(t, err)

	var resp map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	records := resp["records"].([]interface{})
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, []interface{}{120, 178}, first["byte_range"])
}

func TestCSV(t *testing.T) {
	recs := sampleRecords()
	recs[0].DocumentID = "=cmd()"
	out, err := formatters.Export("csv", recs, formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "document_id,file_path,start,end,categories,status,evidence,source_kind"))
	assert.True(t, strings.HasPrefix(lines[1], "'=cmd(),src/main.tex,120,178,credentials;network_identifiers,confirmed,"))
	assert.Contains(t, lines[1], "credentials: CorrectHorse123; network_identifiers: db.internal.example.com")
	assert.Contains(t, lines[2], "extraction_unavailable: transient_unavailable: status 503")
}

func TestText(t *testing.T) {
	out, err := formatters.Export("text", sampleRecords(), formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)
	assert.Contains(t, out, "[CONFIRMED   ]")
	assert.Contains(t, out, "credentials,network_identifiers")
	assert.Contains(t, out, "main.tex")
	assert.Contains(t, out, "Summary: 2 spans, 1 flagged, 1 confirmed, 1 inconclusive (1 without extractor opinion)")
	assert.Contains(t, out, "credentials=1 network_identifiers=1")

	out, err = formatters.Export("text", sampleRecords(), formatters.FormatterOptions{NoColor: true, Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, out, "=== Span Verdict ===")
	assert.Contains(t, out, "- credentials: CorrectHorse123")
	assert.Contains(t, out, "- extraction_unavailable: transient_unavailable: status 503")

	out, err = formatters.Export("text", nil, formatters.FormatterOptions{NoColor: true, FlaggedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "No sensitive content found.\n", out)
}

func TestSARIF(t *testing.T) {
	out, err := formatters.Export("sarif", sampleRecords(), formatters.FormatterOptions{})
	require.NoError(t, err)

	var report struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						Region struct {
							ByteOffset int `json:"byteOffset"`
							ByteLength int `json:"byteLength"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "2.1.0", report.Version)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	require.Len(t, run.Results, 2)
	assert.Equal(t, string(taxonomy.Credentials), run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, 120, run.Results[0].Locations[0].PhysicalLocation.Region.ByteOffset)
	assert.Equal(t, 58, run.Results[0].Locations[0].PhysicalLocation.Region.ByteLength)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "network_identifiers", run.Tool.Driver.Rules[1].ID)
}
