// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"array", `[{"comments":"a"},{"comments":"b"}]`, 2},
		{"object", `{"comments":"a"}`, 1},
		{"ndjson", "{\"comments\":\"a\"}\n\n{\"comments\":\"b\"}\n{\"comments\":\"c\"}", 3},
		{"empty", "  \n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Load(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, records, tt.count)
		})
	}
}

func TestLoad_KeepsBadLines(t *testing.T) {
	records, err := Load(strings.NewReader("{\"comments\":\"a\"}\n{oops\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NoError(t, records[0].ParseError)
	assert.Error(t, records[1].ParseError)
	assert.Equal(t, "{oops", records[1].Raw)
}

func TestParseGroundTruth(t *testing.T) {
	tests := []struct {
		raw  string
		want []taxonomy.Category
	}{
		{"none", nil},
		{"", nil},
		{"PII", []taxonomy.Category{taxonomy.PII}},
		{"credentials, network_identifiers:", []taxonomy.Category{taxonomy.Credentials, taxonomy.NetworkIdentifiers}},
		{"pii,pii, Peer-Review", []taxonomy.Category{taxonomy.PII, taxonomy.PeerReview}},
		{"secret, none, conflict", []taxonomy.Category{taxonomy.Conflict}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseGroundTruth(tt.raw)
			assert.Equal(t, len(tt.want), got.Len())
			for _, c := range tt.want {
				assert.True(t, got.Has(c), "missing %s", c)
			}
		})
	}
}

func TestCases(t *testing.T) {
	input := `[
		{"comments":"% ping alice@uni.edu","flagged":true,"classification":"pii","extracted_data":[]},
		{"document_id":"2401.00001","file_path":"main.tex","source_kind":"auxiliary_code","byte_range":[10,20],"text":"key=abc","expected":["credentials"]}
	]`
	records, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	cases, err := Cases(records)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "case-000000", cases[0].Span.DocumentID)
	assert.Equal(t, span.KindComment, cases[0].Span.SourceKind)
	assert.Equal(t, span.ByteRange{Start: 0, End: len("% ping alice@uni.edu")}, cases[0].Span.ByteRange)
	assert.True(t, cases[0].Expected.Has(taxonomy.PII))

	assert.Equal(t, "case-000001/2401.00001", cases[1].Span.DocumentID)
	assert.Equal(t, "main.tex", cases[1].Span.FilePath)
	assert.Equal(t, span.KindAuxiliaryCode, cases[1].Span.SourceKind)
	assert.Equal(t, span.ByteRange{Start: 10, End: 20}, cases[1].Span.ByteRange)
	assert.True(t, cases[1].Expected.Has(taxonomy.Credentials))
}

func TestCases_Errors(t *testing.T) {
	records, err := Load(strings.NewReader(`[{"comments":"no label"}]`))
	require.NoError(t, err)
	_, err = Cases(records)
	assert.ErrorContains(t, err, "record 0")

	records, err = Load(strings.NewReader("{\"comments\":\"a\",\"classification\":\"none\"}\nnot json\n"))
	require.NoError(t, err)
	_, err = Cases(records)
	assert.ErrorContains(t, err, "record 1")

	records, err = Load(strings.NewReader(`{"text":"a","expected":"pii"}`))
	require.NoError(t, err)
	_, err = Cases(records)
	assert.ErrorContains(t, err, "expected must be a list")
}
