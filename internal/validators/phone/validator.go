// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import (
	"regexp"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const SignaturePhone = "phone-like"

// Validator implements the detector.Validator interface for detecting
// phone numbers in international and North American layouts.
type Validator struct {
	patterns []phonePattern

	positiveKeywords []string
	negativeKeywords []string

	testPhoneNumbers map[string]bool

	contextExtractor *detector.ContextExtractor
}

// phonePattern represents a phone layout with its region
type phonePattern struct {
	name    string
	regex   *regexp.Regexp
	country string
}

// NewValidator creates and returns a new Validator instance
// with predefined patterns and keyword lists for detecting phone numbers.
func NewValidator() *Validator {
	v := &Validator{
		positiveKeywords: []string{
			"phone", "telephone", "tel", "call", "mobile", "cell", "cellular",
			"fax", "whatsapp", "signal", "text me", "sms", "reach me", "ext",
		},
		negativeKeywords: []string{
			"isbn", "issn", "doi", "arxiv", "grant", "award", "timestamp",
			"unix", "epoch", "version", "commit", "hash", "checksum",
			"card", "visa", "mastercard", "pages", "pp.", "vol.",
		},
		testPhoneNumbers: map[string]bool{
			"5550100": true, "5550199": true, "5551212": true, "8675309": true,
			"1234567890": true, "0123456789": true, "9876543210": true,
		},
		contextExtractor: detector.NewContextExtractor().WithContextChars(30),
	}

	v.patterns = []phonePattern{
		{
			name:    "International",
			regex:   regexp.MustCompile(`\+\d{1,3}[\s.-]?(?:\(\d{1,4}\)[\s.-]?)?\d{1,4}(?:[\s.-]?\d{2,4}){2,4}\b`),
			country: "INTL",
		},
		{
			name:    "US_Parenthesized",
			regex:   regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]\d{4}\b`),
			country: "US/CA",
		},
		{
			name:    "US_Dashed",
			regex:   regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
			country: "US/CA",
		},
	}

	return v
}

func (v *Validator) Name() string { return "phone" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignaturePhone, Category: taxonomy.PII, Description: "international or North American phone number"},
	}
}

// ValidateContent scans a span for phone numbers.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match

	for _, pattern := range v.patterns {
		for _, loc := range pattern.regex.FindAllStringIndex(content, -1) {
			start, end := loc[0], loc[1]
			if isDuplicate(matches, start, end) {
				continue
			}
			raw := content[start:end]
			digits := cleanPhoneNumber(raw)
			if len(digits) < 10 || len(digits) > 15 {
				continue
			}

			ctx := v.contextExtractor.ExtractContext(content, start, end)
			tier := detector.ConfidenceMedium
			switch {
			case v.isTestPhoneNumber(digits) || isRepeating(digits):
				tier = detector.ConfidenceLow
			case len(detector.FindKeywords(ctx, v.negativeKeywords)) > 0:
				tier = detector.ConfidenceLow
			case len(detector.FindKeywords(ctx, v.positiveKeywords)) > 0:
				tier = detector.ConfidenceHigh
			}

			matches = append(matches, detector.Match{
				Signature:  SignaturePhone,
				Category:   taxonomy.PII,
				Text:       raw,
				Start:      start,
				End:        end,
				Confidence: tier,
				Validator:  v.Name(),
				Context:    ctx,
				Metadata: map[string]any{
					"format":  pattern.name,
					"country": pattern.country,
				},
			})
		}
	}
	return matches
}

func isDuplicate(existing []detector.Match, start, end int) bool {
	for _, m := range existing {
		if start < m.End && m.Start < end {
			return true
		}
	}
	return false
}

func cleanPhoneNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (v *Validator) isTestPhoneNumber(digits string) bool {
	for n := range v.testPhoneNumbers {
		if strings.HasSuffix(digits, n) {
			return true
		}
	}
	// 555-01xx is reserved for fiction in the NANP
	if len(digits) >= 7 && strings.HasPrefix(digits[len(digits)-7:], "55501") {
		return true
	}
	return false
}

func isRepeating(digits string) bool {
	if len(digits) == 0 {
		return false
	}
	counts := map[rune]int{}
	for _, r := range digits {
		counts[r]++
	}
	return len(counts) <= 2
}
