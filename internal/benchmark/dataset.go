// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package benchmark scores the engine against labeled datasets.
package benchmark

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

// RawRecord is one dataset entry as decoded JSON. Lines of an NDJSON file
// that do not parse are kept with ParseError set so validation can report
// them.
type RawRecord struct {
	Fields     map[string]json.RawMessage
	ParseError error
	Raw        string
}

// ExtractedItem is a labeled value annotated in the dataset.
type ExtractedItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Case is a dataset record ready to be analyzed.
type Case struct {
	Index    int
	Span     span.Span
	Expected taxonomy.Set
}

// Load reads a dataset from r: a JSON array, a single object or NDJSON.
func Load(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		out := make([]RawRecord, len(arr))
		for i, fields := range arr {
			out[i] = RawRecord{Fields: fields}
		}
		return out, nil
	}
	var single map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []RawRecord{{Fields: single}}, nil
	}

	var out []RawRecord
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			out = append(out, RawRecord{ParseError: err, Raw: line})
			continue
		}
		out = append(out, RawRecord{Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}
	return out, nil
}

// LoadFile is a convenience wrapper around Load.
func LoadFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

var nonLabelChars = regexp.MustCompile(`[^a-z_]`)

// ParseGroundTruth normalizes a comma separated classification into a set
// of sensitive categories. Unknown tokens are dropped and none yields the
// empty set.
func ParseGroundTruth(raw string) taxonomy.Set {
	out := taxonomy.NewSet()
	for _, part := range strings.Split(raw, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		p = strings.ReplaceAll(p, "network_identifiers:", "network_identifiers")
		p = nonLabelChars.ReplaceAllString(p, "")
		c := taxonomy.Category(p)
		if c != taxonomy.None && c.Valid() {
			out.Add(c)
		}
	}
	return out
}

// String returns the field as a string and whether it is one.
func (r RawRecord) String(key string) (string, bool) {
	raw, ok := r.Fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Has reports whether the field is present.
func (r RawRecord) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Text returns the analyzed text: "comments" for labeled comment records,
// "text" for span records.
func (r RawRecord) Text() string {
	if s, ok := r.String("comments"); ok {
		return s
	}
	s, _ := r.String("text")
	return s
}

// Expected returns the ground-truth categories from "classification" or
// "expected", whichever is present.
func (r RawRecord) Expected() (taxonomy.Set, error) {
	if s, ok := r.String("classification"); ok {
		return ParseGroundTruth(s), nil
	}
	raw, ok := r.Fields["expected"]
	if !ok {
		return nil, fmt.Errorf("record has neither classification nor expected")
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("expected must be a list of categories: %w", err)
	}
	return ParseGroundTruth(strings.Join(labels, ",")), nil
}

// Cases converts records into analyzable cases. Records that cannot be
// scored are reported as an error naming the first offender.
func Cases(records []RawRecord) ([]Case, error) {
	cases := make([]Case, 0, len(records))
	for i, rec := range records {
		if rec.ParseError != nil {
			return nil, fmt.Errorf("record %d: %w", i, rec.ParseError)
		}
		expected, err := rec.Expected()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		s := span.Span{
			DocumentID: fmt.Sprintf("case-%06d", i),
			FilePath:   "dataset",
			SourceKind: span.KindComment,
			Text:       rec.Text(),
		}
		if id, ok := rec.String("document_id"); ok && id != "" {
			// Keep each case its own unit of commit.
			s.DocumentID = fmt.Sprintf("case-%06d/%s", i, id)
		}
		if p, ok := rec.String("file_path"); ok && p != "" {
			s.FilePath = p
		}
		if k, ok := rec.String("source_kind"); ok && span.SourceKind(k).Valid() {
			s.SourceKind = span.SourceKind(k)
		}
		if raw, ok := rec.Fields["byte_range"]; ok {
			var br span.ByteRange
			if err := json.Unmarshal(raw, &br); err == nil {
				s.ByteRange = br
			}
		}
		if s.ByteRange.End == 0 {
			s.ByteRange.End = s.ByteRange.Start + len(s.Text)
		}
		cases = append(cases, Case{Index: i, Span: s, Expected: expected})
	}
	return cases, nil
}
