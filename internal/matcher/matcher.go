// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package matcher runs the structural signature library over spans.
package matcher

import (
	"fmt"
	"sort"
	"sync"

	"leakaudit/internal/detector"
	"leakaudit/internal/observability"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

// LibraryVersion identifies the signature catalog. Bump it whenever a
// signature is added, removed or retuned.
const LibraryVersion = "sig-2026.10"

// Library is an immutable set of validators. It is safe for concurrent use.
type Library struct {
	validators []detector.Validator
	signatures []detector.Signature
	byName     map[string]detector.Signature
	ctx        *detector.ContextExtractor
	observer   *observability.StandardObserver
}

var (
	defaultOnce    sync.Once
	defaultLibrary *Library
)

// Default returns the process-wide library with every check enabled.
func Default() *Library {
	defaultOnce.Do(func() {
		enabled, _ := ParseChecksToRun("all")
		defaultLibrary = NewLibrary(BuildValidatorSet(enabled))
	})
	return defaultLibrary
}

// NewLibrary wraps the given validators.
func NewLibrary(validators []detector.Validator) *Library {
	lib := &Library{
		validators: validators,
		byName:     make(map[string]detector.Signature),
		ctx:        detector.NewContextExtractor(),
	}
	for _, v := range validators {
		for _, sig := range v.Signatures() {
			if _, dup := lib.byName[sig.Name]; dup {
				continue
			}
			lib.byName[sig.Name] = sig
			lib.signatures = append(lib.signatures, sig)
		}
	}
	sort.Slice(lib.signatures, func(i, j int) bool { return lib.signatures[i].Name < lib.signatures[j].Name })
	return lib
}

// WithObserver returns a copy of the library that reports timings.
func (l *Library) WithObserver(observer *observability.StandardObserver) *Library {
	cp := *l
	cp.observer = observer
	return &cp
}

// Version returns the catalog version.
func (l *Library) Version() string { return LibraryVersion }

// Signatures returns the catalog sorted by name.
func (l *Library) Signatures() []detector.Signature {
	return append([]detector.Signature(nil), l.signatures...)
}

// Signature looks up a signature by name.
func (l *Library) Signature(name string) (detector.Signature, bool) {
	sig, ok := l.byName[name]
	return sig, ok
}

// Match returns every signature hit in the span text, excluding hits on masked
// values. The result is sorted by (start, end, signature) and is identical for
// identical input.
func (l *Library) Match(s span.Span) []detector.Match {
	finish := l.observer.StartTiming("matcher", "match", s.FilePath)

	text := s.Text
	masked := MaskedRegions(text)

	var raw []detector.Match
	for _, v := range l.validators {
		raw = append(raw, v.ValidateContent(text)...)
	}

	seen := make(map[string]bool, len(raw))
	kept := make([]detector.Match, 0, len(raw))
	droppedMasked := 0
	for _, m := range raw {
		if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
			continue
		}
		if IsMaskedValue(m.Text) || overlapsAny(masked, m.Start, m.End) {
			droppedMasked++
			continue
		}
		key := fmt.Sprintf("%s|%d|%d", m.Signature, m.Start, m.End)
		if seen[key] {
			continue
		}
		seen[key] = true
		if m.Context.FullLine == "" {
			m.Context = l.ctx.ExtractContext(text, m.Start, m.End)
		}
		kept = append(kept, m)
	}

	kept = dropShadowed(kept)
	Sort(kept)

	finish(true, map[string]interface{}{
		"matches":        len(kept),
		"masked_dropped": droppedMasked,
		"masked_regions": len(masked),
	})
	return kept
}

// Sort orders matches by (start, end, signature).
func Sort(matches []detector.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Signature < b.Signature
	})
}

var shadowable = map[string]bool{"phone-like": true, "port-like": true, "ip-like": true}

// dropShadowed removes identifier and phone matches that sit entirely inside
// a credential match, e.g. digits of a card number read as a phone number. Connection-string hosts are kept.
func dropShadowed(matches []detector.Match) []detector.Match {
	out := matches[:0:0]
	for i, m := range matches {
		shadowed := false
		if shadowable[m.Signature] {
			for j, other := range matches {
				if i == j || other.Category != taxonomy.Credentials || other.Confidence < detector.ConfidenceMedium {
					continue
				}
				if other.Start <= m.Start && m.End <= other.End && other.End-other.Start > m.End-m.Start {
					shadowed = true
					break
				}
			}
		}
		if !shadowed {
			out = append(out, m)
		}
	}
	return out
}

// Summary counts matches by category and tier.
type Summary struct {
	Total      int
	ByCategory map[taxonomy.Category]int
	ByTier     map[detector.Confidence]int
}

// Summarize tallies a match list.
func Summarize(matches []detector.Match) Summary {
	s := Summary{
		Total:      len(matches),
		ByCategory: make(map[taxonomy.Category]int),
		ByTier:     make(map[detector.Confidence]int),
	}
	for _, m := range matches {
		s.ByCategory[m.Category]++
		s.ByTier[m.Confidence]++
	}
	return s
}
