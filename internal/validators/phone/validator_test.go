// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

func TestValidateContent_Numbers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		text    string
		format  string
		tier    detector.Confidence
	}{
		{"international with cue", "call me at +1 415 867 2671", "+1 415 867 2671", "International", detector.ConfidenceHigh},
		{"international bare", "+44 20 7946 0958", "+44 20 7946 0958", "International", detector.ConfidenceMedium},
		{"parenthesized", "(415) 867-2671", "(415) 867-2671", "US_Parenthesized", detector.ConfidenceMedium},
		{"dashed with cue", "mobile: 415-867-2671", "415-867-2671", "US_Dashed", detector.ConfidenceHigh},
		{"fictional exchange", "phone: 415-555-0123", "415-555-0123", "US_Dashed", detector.ConfidenceLow},
		{"bibliographic context", "see doi 415-867-2671", "415-867-2671", "US_Dashed", detector.ConfidenceLow},
		{"repeating digits", "tel 555-555-5555", "555-555-5555", "US_Dashed", detector.ConfidenceLow},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := v.ValidateContent(tt.content)
			require.Len(t, matches, 1)
			m := matches[0]
			assert.Equal(t, SignaturePhone, m.Signature)
			assert.Equal(t, taxonomy.PII, m.Category)
			assert.Equal(t, tt.text, m.Text)
			assert.Equal(t, tt.format, m.MetaString("format"))
			assert.Equal(t, tt.tier, m.Confidence)
		})
	}
}

func TestValidateContent_NotNumbers(t *testing.T) {
	v := NewValidator()
	for _, content := range []string{
		"call 867-2671",
		"pages 12-34",
		"2024-03-01",
	} {
		assert.Empty(t, v.ValidateContent(content), content)
	}
}

func TestIsTestPhoneNumber(t *testing.T) {
	v := NewValidator()
	assert.True(t, v.isTestPhoneNumber("2125550199"))
	assert.True(t, v.isTestPhoneNumber("4155550142"))
	assert.True(t, v.isTestPhoneNumber("1234567890"))
	assert.False(t, v.isTestPhoneNumber("4158672671"))
}
