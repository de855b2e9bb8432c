// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package spansource

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
)

// TeXSource extracts % comments and comment environments from LaTeX and
// BibTeX sources. Consecutive whole-line comments form a single span so a
// note written over several lines stays together.
type TeXSource struct {
	maxSpanLength int
	observer      *observability.StandardObserver

	beginComment *regexp.Regexp
	endComment   *regexp.Regexp
	bibComment   *regexp.Regexp
}

// NewTeXSource creates a TeX comment source.
func NewTeXSource(maxSpanLength int) *TeXSource {
	return &TeXSource{
		maxSpanLength: maxSpanLength,
		beginComment:  regexp.MustCompile(`\\begin\{comment\}`),
		endComment:    regexp.MustCompile(`\\end\{comment\}`),
		bibComment:    regexp.MustCompile(`(?i)@comment\s*\{`),
	}
}

func (t *TeXSource) GetName() string { return "tex" }

func (t *TeXSource) GetSupportedExtensions() []string {
	return []string{".tex", ".sty", ".cls", ".bib", ".bbl", ".ltx"}
}

func (t *TeXSource) SetObserver(observer *observability.StandardObserver) {
	t.observer = observer
}

func (t *TeXSource) CanProcess(filePath string) bool {
	return hasExtension(filePath, t.GetSupportedExtensions())
}

// Extract reads the file and returns its comment spans.
func (t *TeXSource) Extract(documentID, filePath, relPath string) ([]span.Span, error) {
	finish := t.observer.StartTiming("spansource", "tex", relPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	spans := t.ExtractContent(documentID, relPath, string(data))
	finish(true, map[string]interface{}{"spans": len(spans)})
	return spans, nil
}

// ExtractContent returns the comment spans of content.
func (t *TeXSource) ExtractContent(documentID, relPath, content string) []span.Span {
	b := newBuilder(documentID, relPath, span.KindComment, t.maxSpanLength)

	skip := t.environmentBodies(content, b)
	if strings.EqualFold(filepath.Ext(relPath), ".bib") {
		skip = append(skip, t.bibComments(content, b)...)
	}

	blockStart, blockEnd := -1, -1
	flush := func() {
		if blockStart >= 0 && strings.Trim(content[blockStart:blockEnd], "% \t\r\n") != "" {
			b.add(content[blockStart:blockEnd], blockStart)
		}
		blockStart, blockEnd = -1, -1
	}

	offset := 0
	for offset <= len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		if lineEnd < 0 {
			lineEnd = len(content)
		} else {
			lineEnd += offset
		}
		line := content[offset:lineEnd]

		if inRanges(skip, offset) {
			flush()
		} else if idx := commentIndex(line); idx >= 0 {
			start := offset + idx
			wholeLine := strings.TrimSpace(line[:idx]) == ""
			if !wholeLine || blockStart < 0 {
				flush()
				blockStart = start
			}
			blockEnd = lineEnd
			if strings.HasSuffix(line, "\r") {
				blockEnd--
			}
			if !wholeLine {
				flush()
			}
		} else {
			flush()
		}

		if lineEnd == len(content) {
			break
		}
		offset = lineEnd + 1
	}
	flush()

	sort.SliceStable(b.spans, func(i, j int) bool {
		return b.spans[i].ByteRange.Start < b.spans[j].ByteRange.Start
	})
	return b.spans
}

// environmentBodies adds the body of each comment environment and returns
// the byte ranges they cover.
func (t *TeXSource) environmentBodies(content string, b *builder) []span.ByteRange {
	var covered []span.ByteRange
	for _, loc := range t.beginComment.FindAllStringIndex(content, -1) {
		if len(covered) > 0 && loc[0] < covered[len(covered)-1].End {
			continue
		}
		bodyStart := loc[1]
		bodyEnd := len(content)
		closeEnd := len(content)
		if end := t.endComment.FindStringIndex(content[bodyStart:]); end != nil {
			bodyEnd = bodyStart + end[0]
			closeEnd = bodyStart + end[1]
		}
		b.add(content[bodyStart:bodyEnd], bodyStart)
		covered = append(covered, span.ByteRange{Start: loc[0], End: closeEnd})
	}
	return covered
}

// bibComments adds the body of each @comment{...} entry.
func (t *TeXSource) bibComments(content string, b *builder) []span.ByteRange {
	var covered []span.ByteRange
	for _, loc := range t.bibComment.FindAllStringIndex(content, -1) {
		depth := 1
		i := loc[1]
		for ; i < len(content) && depth > 0; i++ {
			switch content[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		bodyEnd := i
		if depth == 0 {
			bodyEnd = i - 1
		}
		b.add(content[loc[1]:bodyEnd], loc[1])
		covered = append(covered, span.ByteRange{Start: loc[0], End: i})
	}
	return covered
}

// commentIndex returns the offset of the first unescaped % in line or -1.
// A % preceded by an odd run of backslashes is a literal percent sign.
func commentIndex(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}

func inRanges(ranges []span.ByteRange, offset int) bool {
	for _, r := range ranges {
		if offset >= r.Start && offset < r.End {
			return true
		}
	}
	return false
}
