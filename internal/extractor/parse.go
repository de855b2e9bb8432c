// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"leakaudit/internal/taxonomy"
)

var (
	xmlElement = regexp.MustCompile(`(?is)^<xml>(.*)</xml>$`)
	xmlOpen    = regexp.MustCompile(`(?i)<xml>`)
)

// ParseReply extracts the category tokens from a model reply. A reply of
// <xml>none</xml> yields an empty, non-nil slice.
func ParseReply(reply string) ([]taxonomy.Category, error) {
	content := stripThinkBlock(reply)
	content = stripCodeFence(content)
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	if n := len(xmlOpen.FindAllStringIndex(content, -1)); n != 1 {
		return nil, fmt.Errorf("%w: expected one <xml> element, found %d", ErrMalformedResponse, n)
	}
	m := xmlElement.FindStringSubmatch(content)
	if m == nil {
		return nil, fmt.Errorf("%w: text outside the <xml> element", ErrMalformedResponse)
	}

	inner := strings.TrimSpace(m[1])
	if inner == "" {
		return nil, fmt.Errorf("%w: empty <xml> element", ErrMalformedResponse)
	}

	var out []taxonomy.Category
	seen := make(map[taxonomy.Category]bool)
	sawNone := false
	for _, part := range strings.Split(inner, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		cat, err := taxonomy.Parse(token)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown category %q", ErrMalformedResponse, token)
		}
		if cat == taxonomy.None {
			sawNone = true
			continue
		}
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}

	switch {
	case sawNone && len(out) > 0:
		return nil, fmt.Errorf("%w: none combined with %v", ErrMalformedResponse, out)
	case !sawNone && len(out) == 0:
		return nil, fmt.Errorf("%w: no category tokens", ErrMalformedResponse)
	case sawNone:
		return []taxonomy.Category{}, nil
	}
	return out, nil
}

// stripThinkBlock removes a <think>...</think> reasoning block. An unclosed
// block drops everything from <think> onwards.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], close)
		if end < 0 {
			return strings.TrimSpace(s[:start])
		}
		s = s[:start] + s[start+end+len(close):]
	}
}

// stripCodeFence removes ```xml ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
