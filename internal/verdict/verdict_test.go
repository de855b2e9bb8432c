// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package verdict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

func TestNew_NoneExclusive(t *testing.T) {
	v := New(taxonomy.NewSet(taxonomy.None, taxonomy.PII), map[taxonomy.Category][]string{
		taxonomy.PII:         {"jane.doe@gmail.com"},
		taxonomy.Credentials: {"stray"},
	}, nil)

	assert.Equal(t, []taxonomy.Category{taxonomy.PII}, v.Sorted())
	assert.False(t, v.Has(taxonomy.None))
	assert.Empty(t, v.Evidence(taxonomy.Credentials))
	assert.Equal(t, StatusConfirmed, v.Status())

	empty := New(taxonomy.NewSet(), nil, nil)
	assert.True(t, empty.IsNone())
	assert.Equal(t, []string{"none"}, empty.Categories().Strings())
}

func TestVerdict_Immutable(t *testing.T) {
	admitted := taxonomy.NewSet(taxonomy.Credentials)
	evidence := map[taxonomy.Category][]string{taxonomy.Credentials: {"hunter2"}}
	v := New(admitted, evidence, nil)

	admitted.Add(taxonomy.PII)
	evidence[taxonomy.Credentials][0] = "changed"
	v.Categories().Add(taxonomy.Conflict)
	v.Evidence(taxonomy.Credentials)[0] = "changed again"

	assert.Equal(t, []taxonomy.Category{taxonomy.Credentials}, v.Sorted())
	assert.Equal(t, []string{"hunter2"}, v.Evidence(taxonomy.Credentials))
}

func TestStatus(t *testing.T) {
	v := None(Annotation{Kind: AnnotationReclassified, Category: taxonomy.Conflict, Reason: "reviewer disagreement"})
	assert.Equal(t, StatusConfirmed, v.Status())

	v = None(Annotation{Kind: AnnotationExtractionUnavailable, Reason: "transient_unavailable"})
	assert.Equal(t, StatusInconclusive, v.Status())
	assert.True(t, v.HasAnnotation(AnnotationExtractionUnavailable))
}

func TestNewRecord(t *testing.T) {
	s := span.Span{DocumentID: "2401.00001", FilePath: "main.tex", SourceKind: span.KindComment,
		ByteRange: span.ByteRange{Start: 4, End: 40}, Text: "secret"}
	v := New(taxonomy.NewSet(taxonomy.Credentials), map[taxonomy.Category][]string{taxonomy.Credentials: {"secret"}}, nil)

	r := NewRecord(s, v, RecordOptions{ContractVersion: "taxonomy-v1"})
	assert.Equal(t, []string{"credentials"}, r.Categories)
	assert.Equal(t, s.Key(), r.SpanKey)
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", r.TextSHA256)
	assert.Empty(t, r.Text)
	assert.True(t, r.Flagged())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"byte_range":[4,40]`)
	assert.Contains(t, string(data), `"evidence":{"credentials":["secret"]}`)
	assert.NotContains(t, string(data), `"text"`)
}

func TestLess(t *testing.T) {
	a := Record{DocumentID: "a", FilePath: "x", ByteRange: span.ByteRange{Start: 9}}
	b := Record{DocumentID: "a", FilePath: "x", ByteRange: span.ByteRange{Start: 10}}
	c := Record{DocumentID: "b"}
	assert.True(t, Less(a, b))
	assert.True(t, Less(b, c))
	assert.False(t, Less(c, a))
}
