// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"leakaudit/internal/taxonomy"
)

// Confidence is the tier a structural match is assigned by its validator.
type Confidence int

const (
	// ConfidenceLow matches never support a category on their own: documented
	// example ranges, vendor test numbers, test mailboxes.
	ConfidenceLow Confidence = iota
	// ConfidenceMedium matches support a category only when the entity
	// extractor independently names it.
	ConfidenceMedium
	// ConfidenceHigh matches are structurally unambiguous.
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText encodes the tier by name.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Signature describes a named shape detector and the category it weakly implies.
// Signatures that imply taxonomy.None only describe scaffolding.
type Signature struct {
	Name        string
	Category    taxonomy.Category
	Description string
}

// ContextInfo stores the text surrounding a match inside its span.
type ContextInfo struct {
	BeforeText string
	AfterText  string

	// Line containing the match
	FullLine string

	PositiveKeywords []string
	NegativeKeywords []string
}

// Validator is implemented by every signature family. ValidateContent must be
// pure and deterministic; it never fails, an empty slice is a normal result.
type Validator interface {
	Name() string
	Signatures() []Signature
	ValidateContent(content string) []Match
}

// Match represents a signature hit inside a span.
type Match struct {
	Signature  string
	Category   taxonomy.Category
	Text       string
	Start      int
	End        int
	Confidence Confidence
	Validator  string
	Metadata   map[string]any

	Context ContextInfo
}

// Supports reports whether the match can stand as literal evidence for its
// category, optionally requiring the high tier.
func (m Match) Supports(requireHigh bool) bool {
	if m.Category == taxonomy.None {
		return false
	}
	if requireHigh {
		return m.Confidence == ConfidenceHigh
	}
	return m.Confidence >= ConfidenceMedium
}

// MetaString returns a string metadata value or "".
func (m Match) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	if v, ok := m.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Overlaps reports whether the two matches share any byte.
func (m Match) Overlaps(other Match) bool {
	return m.Start < other.End && other.Start < m.End
}
