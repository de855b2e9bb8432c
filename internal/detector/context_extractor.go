// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
)

// ContextExtractor extracts the text around a match inside a span
type ContextExtractor struct {
	// Number of characters before and after the match to consider
	ContextChars int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 50,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// ExtractContext returns the context for the byte range [start, end) of content.
func (ce *ContextExtractor) ExtractContext(content string, start, end int) ContextInfo {
	if start < 0 || end > len(content) || start > end {
		return ContextInfo{}
	}

	info := ContextInfo{}
	info.BeforeText = content[max(0, start-ce.ContextChars):start]
	info.AfterText = content[end:min(len(content), end+ce.ContextChars)]

	lineStart := strings.LastIndexByte(content[:start], '\n') + 1
	lineEnd := len(content)
	if idx := strings.IndexByte(content[end:], '\n'); idx >= 0 {
		lineEnd = end + idx
	}
	info.FullLine = content[lineStart:lineEnd]
	return info
}

// FindKeywords returns every keyword that occurs in the lower-cased context.
func FindKeywords(info ContextInfo, keywords []string) []string {
	haystack := strings.ToLower(info.BeforeText + " " + info.AfterText)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			found = append(found, kw)
		}
	}
	return found
}
