// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package spansource

import (
	"fmt"
	"os"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
)

// maxAnnotatedPages bounds how many pages are inspected for annotations.
const maxAnnotatedPages = 500

// ignoredAnnotations carry no author-written text.
var ignoredAnnotations = map[string]bool{
	"Link":   true,
	"Widget": true,
	"Popup":  true,
}

// PDFAnnotationSource extracts the contents and author of sticky notes,
// highlights and other markup annotations left in a PDF.
type PDFAnnotationSource struct {
	maxSpanLength int
	observer      *observability.StandardObserver
}

// NewPDFAnnotationSource creates a PDF annotation source.
func NewPDFAnnotationSource(maxSpanLength int) *PDFAnnotationSource {
	return &PDFAnnotationSource{maxSpanLength: maxSpanLength}
}

func (p *PDFAnnotationSource) GetName() string                 { return "pdf-annotations" }
func (p *PDFAnnotationSource) GetSupportedExtensions() []string { return []string{".pdf"} }

func (p *PDFAnnotationSource) SetObserver(observer *observability.StandardObserver) {
	p.observer = observer
}

func (p *PDFAnnotationSource) CanProcess(filePath string) bool {
	return hasExtension(filePath, p.GetSupportedExtensions())
}

// Extract walks the page annotations of the PDF.
func (p *PDFAnnotationSource) Extract(documentID, filePath, relPath string) ([]span.Span, error) {
	finish := p.observer.StartTiming("spansource", "pdf_annotations", relPath)

	raw, err := os.ReadFile(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	f, r, err := pdf.Open(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	comments := newBuilder(documentID, relPath, span.KindComment, p.maxSpanLength)
	authors := newBuilder(documentID, relPath, span.KindMetadata, p.maxSpanLength)
	seenAuthors := make(map[string]bool)

	pages := r.NumPage()
	if pages > maxAnnotatedPages {
		pages = maxAnnotatedPages
	}
	for i := 1; i <= pages; i++ {
		annots := r.Page(i).V.Key("Annots")
		if annots.Kind() != pdf.Array {
			continue
		}
		for j := 0; j < annots.Len(); j++ {
			annot := annots.Index(j)
			if annot.Kind() != pdf.Dict || ignoredAnnotations[annot.Key("Subtype").Name()] {
				continue
			}
			if contents := annot.Key("Contents"); contents.Kind() == pdf.String {
				comments.addValue(raw, contents.Text())
			}
			if author := annot.Key("T"); author.Kind() == pdf.String {
				name := author.Text()
				if name != "" && !seenAuthors[name] {
					seenAuthors[name] = true
					authors.addValue(raw, name)
				}
			}
		}
	}

	spans := append(comments.spans, authors.spans...)
	finish(true, map[string]interface{}{"spans": len(spans), "pages": pages})
	return spans, nil
}

// infoFields are the document information entries worth inspecting.
var infoFields = []string{"Title", "Author", "Subject", "Creator", "Producer"}

// PDFInfoSource extracts the document information dictionary of a PDF:
// title, author, subject, creator, producer and custom properties.
type PDFInfoSource struct {
	maxSpanLength int
	observer      *observability.StandardObserver
}

// NewPDFInfoSource creates a PDF metadata source.
func NewPDFInfoSource(maxSpanLength int) *PDFInfoSource {
	return &PDFInfoSource{maxSpanLength: maxSpanLength}
}

func (p *PDFInfoSource) GetName() string                 { return "pdf-info" }
func (p *PDFInfoSource) GetSupportedExtensions() []string { return []string{".pdf"} }

func (p *PDFInfoSource) SetObserver(observer *observability.StandardObserver) {
	p.observer = observer
}

func (p *PDFInfoSource) CanProcess(filePath string) bool {
	return hasExtension(filePath, p.GetSupportedExtensions())
}

// Extract reads the information dictionary through a validated context.
func (p *PDFInfoSource) Extract(documentID, filePath, relPath string) ([]span.Span, error) {
	finish := p.observer.StartTiming("spansource", "pdf_info", relPath)

	raw, err := os.ReadFile(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	ctx, err := api.ReadContextFile(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	values := map[string]string{
		"Title":    ctx.Title,
		"Author":   ctx.Author,
		"Subject":  ctx.Subject,
		"Creator":  ctx.Creator,
		"Producer": ctx.Producer,
	}
	b := newBuilder(documentID, relPath, span.KindMetadata, p.maxSpanLength)
	for _, field := range infoFields {
		b.addValue(raw, values[field])
	}

	keys := make([]string, 0, len(ctx.Properties))
	for k := range ctx.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.addValue(raw, ctx.Properties[k])
	}

	finish(true, map[string]interface{}{"spans": len(b.spans)})
	return b.spans, nil
}
