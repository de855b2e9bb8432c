// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"regexp"
	"sort"
	"strings"
)

// Region is a byte range of masked or placeholder content.
type Region struct {
	Start int
	End   int
	Text  string
}

var maskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*{3,}`),
	regexp.MustCompile(`•{3,}`),
	regexp.MustCompile(`#{4,}`),
	regexp.MustCompile(`\b[Xx]{3,}\b`),
	regexp.MustCompile(`\b[Xx]{2,}(?:[-./:\s][Xx0-9*]{2,}){2,}\b`),
	regexp.MustCompile(`(?i)\bx(?:\.x){3}\b`),
	regexp.MustCompile(`(?i)\b(?:\d{1,3}\.){1,3}x{1,3}(?:\.x{1,3})*\b`),
	regexp.MustCompile(`<\*+(?:\.\*+)*>`),
	regexp.MustCompile(`(?i)[\[<(]?\bredacted\b[\]>)]?`),
	regexp.MustCompile(`(?i)\[(?:hidden|removed|masked|censored|omitted)\]`),
	regexp.MustCompile(`(?i)<(?:hidden|removed|masked|censored|omitted|secret|password|token|api[_-]?key)>`),
}

// MaskedRegions returns the merged, sorted masked regions of text.
func MaskedRegions(text string) []Region {
	var regions []Region
	for _, re := range maskPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			regions = append(regions, Region{Start: loc[0], End: loc[1]})
		}
	}
	if len(regions) == 0 {
		return nil
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Start != regions[j].Start {
			return regions[i].Start < regions[j].Start
		}
		return regions[i].End < regions[j].End
	})

	merged := []Region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	for i := range merged {
		merged[i].Text = text[merged[i].Start:merged[i].End]
	}
	return merged
}

// IsMaskedValue reports whether a matched value is itself a mask.
func IsMaskedValue(value string) bool {
	if value == "" {
		return false
	}
	for _, re := range maskPatterns {
		if loc := re.FindStringIndex(value); loc != nil {
			return true
		}
	}
	lower := strings.ToLower(value)
	return strings.Trim(lower, "x*•#.-:/ ") == ""
}

// overlapsAny reports whether [start, end) touches any masked region,
// including a mask that directly abuts the value (e.g. "4111-XXXX").
func overlapsAny(regions []Region, start, end int) bool {
	for _, r := range regions {
		if start <= r.End && r.Start <= end {
			return true
		}
	}
	return false
}

// OnlyMasked reports whether text carries masks and nothing else but
// punctuation, whitespace and short connecting words.
func OnlyMasked(text string) bool {
	regions := MaskedRegions(text)
	if len(regions) == 0 {
		return false
	}
	var rest strings.Builder
	prev := 0
	for _, r := range regions {
		rest.WriteString(text[prev:r.Start])
		rest.WriteByte(' ')
		prev = r.End
	}
	rest.WriteString(text[prev:])
	for _, field := range strings.FieldsFunc(rest.String(), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		if len(field) > 12 {
			return false
		}
	}
	return true
}
