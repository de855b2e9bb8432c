// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

func bySignature(matches []detector.Match, signature string) []detector.Match {
	var out []detector.Match
	for _, m := range matches {
		if m.Signature == signature {
			out = append(out, m)
		}
	}
	return out
}

func TestValidateContent_Names(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		text          string
		anchor        string
		bibliographic bool
		tier          detector.Confidence
	}{
		{"contact cue", "Contact Jane Doe at the lab", "Jane Doe", "cue", false, detector.ConfidenceMedium},
		{"title cue", "Dr. Maria Lopez will join", "Maria Lopez", "cue", false, detector.ConfidenceMedium},
		{"given name", "Alice Martin reviewed the draft", "Alice Martin", "given_name", false, detector.ConfidenceMedium},
		{"bibliographic", "Alice Martin et al. showed this", "Alice Martin", "given_name", true, detector.ConfidenceLow},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := bySignature(v.ValidateContent(tt.content), SignatureName)
			require.Len(t, names, 1)
			assert.Equal(t, tt.text, names[0].Text)
			assert.Equal(t, tt.anchor, names[0].MetaString("anchor"))
			assert.Equal(t, tt.bibliographic, names[0].Metadata["bibliographic"])
			assert.Equal(t, tt.tier, names[0].Confidence)
			assert.Equal(t, taxonomy.PII, names[0].Category)
		})
	}
}

func TestValidateContent_NotNames(t *testing.T) {
	v := NewValidator()
	for _, content := range []string{
		"Contact Support Team for access",
		"see Table Three below",
		"Dear Reviewers, thanks",
	} {
		assert.Empty(t, bySignature(v.ValidateContent(content), SignatureName), content)
	}
}

func TestValidateContent_StreetAddress(t *testing.T) {
	v := NewValidator()
	addrs := bySignature(v.ValidateContent("ship it to 221 Baker Street please"), SignatureAddress)
	require.Len(t, addrs, 1)
	assert.Equal(t, "221 Baker Street", addrs[0].Text)
	assert.Equal(t, detector.ConfidenceMedium, addrs[0].Confidence)
}

func TestGivenNames(t *testing.T) {
	names := GivenNames()
	assert.True(t, names["alice"])
	assert.True(t, names["jane"])
	assert.False(t, names["section"])
}

func TestIsValidName(t *testing.T) {
	assert.True(t, isValidName("Anne-Marie"))
	assert.True(t, isValidName("O'Neil"))
	assert.False(t, isValidName("a"))
	assert.False(t, isValidName("bob42"))
}
