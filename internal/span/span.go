// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package span defines the normalized candidate text record every stage of
// the engine consumes, plus readers for the supported input encodings.
package span

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SourceKind identifies the kind of non-rendered material a span came from.
type SourceKind string

const (
	KindComment       SourceKind = "comment"
	KindAuxiliaryCode SourceKind = "auxiliary_code"
	KindMetadata      SourceKind = "metadata"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case KindComment, KindAuxiliaryCode, KindMetadata:
		return true
	}
	return false
}

// ByteRange is a half-open [Start, End) offset range within the source file.
type ByteRange struct {
	Start int
	End   int
}

// MarshalJSON encodes the range as a two element array.
func (r ByteRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON accepts either [start, end] or {"start":..,"end":..}.
func (r *ByteRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("byte_range must have two elements, got %d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid byte_range: %w", err)
	}
	r.Start, r.End = obj.Start, obj.End
	return nil
}

// MarshalYAML encodes the range as a flow sequence.
func (r ByteRange) MarshalYAML() (interface{}, error) {
	return []int{r.Start, r.End}, nil
}

func (r ByteRange) String() string {
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// Span is the unit of analysis. It is never mutated once created.
type Span struct {
	DocumentID string     `json:"document_id" yaml:"document_id"`
	FilePath   string     `json:"file_path" yaml:"file_path"`
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`
	ByteRange  ByteRange  `json:"byte_range" yaml:"byte_range"`
	Text       string     `json:"text" yaml:"text"`
}

// Validate checks the provenance fields of a span.
func (s Span) Validate() error {
	if s.DocumentID == "" {
		return fmt.Errorf("span is missing document_id")
	}
	if s.SourceKind != "" && !s.SourceKind.Valid() {
		return fmt.Errorf("span %s has unknown source_kind %q", s.DocumentID, s.SourceKind)
	}
	if s.ByteRange.End < s.ByteRange.Start {
		return fmt.Errorf("span %s has inverted byte_range %s", s.DocumentID, s.ByteRange)
	}
	return nil
}

// Key is a stable fingerprint of the span's provenance and text, used to
// reassemble verdicts that complete out of order.
func (s Span) Key() string {
	d := xxhash.New()
	d.WriteString(s.DocumentID)
	d.WriteString("\x00")
	d.WriteString(s.FilePath)
	d.WriteString("\x00")
	d.WriteString(s.ByteRange.String())
	d.WriteString("\x00")
	d.WriteString(s.Text)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Checksum returns the hex sha256 of the span text.
func (s Span) Checksum() string {
	sum := sha256.Sum256([]byte(s.Text))
	return hex.EncodeToString(sum[:])
}
