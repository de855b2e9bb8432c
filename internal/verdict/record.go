// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package verdict

import (
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

// Record is the serialized form of a verdict with its span provenance.
type Record struct {
	DocumentID       string              `json:"document_id" yaml:"document_id"`
	FilePath         string              `json:"file_path" yaml:"file_path"`
	SourceKind       span.SourceKind     `json:"source_kind,omitempty" yaml:"source_kind,omitempty"`
	ByteRange        span.ByteRange      `json:"byte_range" yaml:"byte_range"`
	Categories       []string            `json:"categories" yaml:"categories"`
	Evidence         map[string][]string `json:"evidence" yaml:"evidence"`
	Status           Status              `json:"status" yaml:"status"`
	Annotations      []Annotation        `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	ContractVersion  string              `json:"contract_version" yaml:"contract_version"`
	SignatureVersion string              `json:"signature_version,omitempty" yaml:"signature_version,omitempty"`
	SpanKey          string              `json:"span_key" yaml:"span_key"`
	TextSHA256       string              `json:"text_sha256" yaml:"text_sha256"`
	Text             string              `json:"text,omitempty" yaml:"text,omitempty"`
}

// RecordOptions controls optional record fields.
type RecordOptions struct {
	ContractVersion  string
	SignatureVersion string
	IncludeText      bool
}

// NewRecord pairs a verdict with its span.
func NewRecord(s span.Span, v Verdict, opts RecordOptions) Record {
	r := Record{
		DocumentID:       s.DocumentID,
		FilePath:         s.FilePath,
		SourceKind:       s.SourceKind,
		ByteRange:        s.ByteRange,
		Categories:       v.Categories().Strings(),
		Evidence:         v.EvidenceMap(),
		Status:           v.Status(),
		Annotations:      v.Annotations(),
		ContractVersion:  opts.ContractVersion,
		SignatureVersion: opts.SignatureVersion,
		SpanKey:          s.Key(),
		TextSHA256:       s.Checksum(),
	}
	if opts.IncludeText {
		r.Text = s.Text
	}
	return r
}

// CategorySet parses the record's categories back into a set.
func (r Record) CategorySet() taxonomy.Set {
	s := taxonomy.NewSet()
	for _, c := range r.Categories {
		if cat, err := taxonomy.Parse(c); err == nil {
			s.Add(cat)
		}
	}
	return s.Normalize()
}

// Flagged reports whether the record carries any sensitive category.
func (r Record) Flagged() bool {
	return !r.CategorySet().IsNone()
}

// Less orders records by document, file and byte offset.
func Less(a, b Record) bool {
	if a.DocumentID != b.DocumentID {
		return a.DocumentID < b.DocumentID
	}
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.ByteRange.Start != b.ByteRange.Start {
		return a.ByteRange.Start < b.ByteRange.Start
	}
	if a.ByteRange.End != b.ByteRange.End {
		return a.ByteRange.End < b.ByteRange.End
	}
	return a.SpanKey < b.SpanKey
}
