// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package spansource extracts candidate spans from the non-rendered parts of
// a paper archive: TeX comments, PDF annotations and document metadata.
package spansource

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
)

// DefaultMaxSpanLength caps the text of a single span in bytes.
const DefaultMaxSpanLength = 4096

// Source extracts spans from files it recognizes.
type Source interface {
	// CanProcess checks if this source can handle the given file
	CanProcess(filePath string) bool

	// Extract returns the spans found in the file. relPath is the path
	// recorded in span provenance.
	Extract(documentID, filePath, relPath string) ([]span.Span, error)

	GetName() string
	GetSupportedExtensions() []string
	SetObserver(observer *observability.StandardObserver)
}

// Manager runs every registered source that accepts a file.
type Manager struct {
	sources  []Source
	observer *observability.StandardObserver
}

// NewManager creates a manager with the given sources registered.
func NewManager(sources ...Source) *Manager {
	return &Manager{sources: sources}
}

// NewDefaultManager registers the TeX, PDF and image sources.
func NewDefaultManager(maxSpanLength int) *Manager {
	return NewManager(
		NewTeXSource(maxSpanLength),
		NewPDFAnnotationSource(maxSpanLength),
		NewPDFInfoSource(maxSpanLength),
		NewImageSource(maxSpanLength),
	)
}

// RegisterSource adds a source to the manager.
func (m *Manager) RegisterSource(s Source) {
	if m.observer != nil {
		s.SetObserver(m.observer)
	}
	m.sources = append(m.sources, s)
}

// SetObserver propagates the observer to every source.
func (m *Manager) SetObserver(observer *observability.StandardObserver) {
	m.observer = observer
	for _, s := range m.sources {
		s.SetObserver(observer)
	}
}

// Sources returns the registered sources.
func (m *Manager) Sources() []Source {
	return m.sources
}

// CanProcess reports whether any source handles the file.
func (m *Manager) CanProcess(filePath string) bool {
	for _, s := range m.sources {
		if s.CanProcess(filePath) {
			return true
		}
	}
	return false
}

// ExtractFile collects spans from all sources that accept the file. A
// failing source does not stop the others; the errors are joined.
func (m *Manager) ExtractFile(documentID, filePath, relPath string) ([]span.Span, error) {
	var spans []span.Span
	var errs []string
	for _, s := range m.sources {
		if !s.CanProcess(filePath) {
			continue
		}
		found, err := safeExtract(s, documentID, filePath, relPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.GetName(), err))
			continue
		}
		spans = append(spans, found...)
	}
	if len(errs) > 0 {
		return spans, fmt.Errorf("failed to extract spans from %s: %s", relPath, strings.Join(errs, "; "))
	}
	return spans, nil
}

// safeExtract recovers from panics in third-party decoders so one corrupt
// file cannot end the scan.
func safeExtract(s Source, documentID, filePath, relPath string) (spans []span.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans, err = nil, fmt.Errorf("source panic in %s: %v", s.GetName(), r)
		}
	}()
	return s.Extract(documentID, filePath, relPath)
}

func hasExtension(filePath string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// builder assembles spans for one file, trimming empty text and enforcing the
// length cap.
type builder struct {
	documentID string
	relPath    string
	kind       span.SourceKind
	maxLength  int
	spans      []span.Span
}

func newBuilder(documentID, relPath string, kind span.SourceKind, maxLength int) *builder {
	if maxLength <= 0 {
		maxLength = DefaultMaxSpanLength
	}
	return &builder{documentID: documentID, relPath: filepath.ToSlash(relPath), kind: kind, maxLength: maxLength}
}

// add records text found at byte offset start. Whitespace-only text is
// dropped and longer text is cut at a rune boundary.
func (b *builder) add(text string, start int) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if len(text) > b.maxLength {
		cut := b.maxLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	b.spans = append(b.spans, span.Span{
		DocumentID: b.documentID,
		FilePath:   b.relPath,
		SourceKind: b.kind,
		ByteRange:  span.ByteRange{Start: start, End: start + len(text)},
		Text:       text,
	})
}

// addValue records a metadata value, locating it in raw when it is stored
// verbatim. Values that are not found are placed at offset zero.
func (b *builder) addValue(raw []byte, value string) {
	value = strings.TrimSpace(strings.Trim(value, "\x00"))
	start := 0
	if value != "" {
		if idx := bytes.Index(raw, []byte(value)); idx >= 0 {
			start = idx
		}
	}
	b.add(value, start)
}
