// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package spansource

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
)

// exifTextFields are the EXIF tags that hold free text a person can write.
var exifTextFields = []exif.FieldName{
	exif.ImageDescription,
	exif.Artist,
	exif.Copyright,
	exif.UserComment,
	exif.Make,
	exif.Model,
	exif.Software,
}

// ImageSource extracts textual EXIF tags from figures shipped with a paper.
type ImageSource struct {
	maxSpanLength int
	observer      *observability.StandardObserver
}

// NewImageSource creates an EXIF metadata source.
func NewImageSource(maxSpanLength int) *ImageSource {
	return &ImageSource{maxSpanLength: maxSpanLength}
}

func (s *ImageSource) GetName() string { return "exif" }

func (s *ImageSource) GetSupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".tif", ".tiff"}
}

func (s *ImageSource) SetObserver(observer *observability.StandardObserver) {
	s.observer = observer
}

func (s *ImageSource) CanProcess(filePath string) bool {
	return hasExtension(filePath, s.GetSupportedExtensions())
}

// Extract decodes the EXIF block. Images without EXIF yield no spans.
func (s *ImageSource) Extract(documentID, filePath, relPath string) ([]span.Span, error) {
	finish := s.observer.StartTiming("spansource", "exif", relPath)

	raw, err := os.ReadFile(filePath)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		finish(true, map[string]interface{}{"spans": 0, "exif": false})
		return nil, nil
	}

	b := newBuilder(documentID, relPath, span.KindMetadata, s.maxSpanLength)
	for _, name := range exifTextFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		b.addValue(raw, tagText(name, tag))
	}

	finish(true, map[string]interface{}{"spans": len(b.spans), "exif": true})
	return b.spans, nil
}

// tagText returns the printable value of a text tag. UserComment is stored
// as undefined bytes behind an eight byte character code.
func tagText(name exif.FieldName, tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		v, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return v
	}
	if name == exif.UserComment && len(tag.Val) > 8 {
		return strings.TrimRight(string(tag.Val[8:]), "\x00 ")
	}
	return ""
}
