// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package span

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single NDJSON record.
const maxLineSize = 16 * 1024 * 1024

// Read decodes spans from r. A JSON array, a single JSON object and
// newline-delimited JSON are all accepted.
func Read(r io.Reader) ([]Span, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read spans: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var spans []Span
		if err := json.Unmarshal(trimmed, &spans); err != nil {
			return nil, fmt.Errorf("failed to decode span array: %w", err)
		}
		return spans, validateAll(spans)
	case '{':
		var single Span
		if err := json.Unmarshal(trimmed, &single); err == nil {
			return []Span{single}, validateAll([]Span{single})
		}
	}
	return readNDJSON(trimmed)
}

// ReadFile is a convenience wrapper around Read.
func ReadFile(path string) ([]Span, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open span file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func readNDJSON(data []byte) ([]Span, error) {
	var spans []Span
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var s Span
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode span: %w", lineNum, err)
		}
		spans = append(spans, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan span records: %w", err)
	}
	return spans, validateAll(spans)
}

func validateAll(spans []Span) error {
	for i, s := range spans {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return nil
}

// GroupByDocument splits spans per document while preserving input order,
// returning the document ids in first-seen order.
func GroupByDocument(spans []Span) ([]string, map[string][]Span) {
	var order []string
	groups := make(map[string][]Span)
	for _, s := range spans {
		if _, ok := groups[s.DocumentID]; !ok {
			order = append(order, s.DocumentID)
		}
		groups[s.DocumentID] = append(groups[s.DocumentID], s)
	}
	return order, groups
}
