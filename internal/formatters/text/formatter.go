// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"

	"leakaudit/internal/formatters"
	"leakaudit/internal/formatters/shared"
	"leakaudit/internal/verdict"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(records []verdict.Record, options formatters.FormatterOptions) (string, error) {
	prepared := shared.PrepareRecords(records, options)
	if len(prepared) == 0 {
		if options.FlaggedOnly {
			return "No sensitive content found.\n", nil
		}
		return "No spans analyzed.\n", nil
	}

	var builder strings.Builder
	if options.Verbose {
		for _, rec := range prepared {
			f.appendDetailedRecord(&builder, rec, options)
		}
	} else {
		f.appendHeaders(&builder, prepared, options)
		for _, rec := range prepared {
			f.appendSummaryLine(&builder, rec, prepared, options)
		}
	}
	f.appendFooter(&builder, shared.Summarize(prepared), options)
	return builder.String(), nil
}

// paint formats with the named color unless colors are disabled.
func (f *Formatter) paint(options formatters.FormatterOptions, name, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, records []verdict.Record, options formatters.FormatterOptions) {
	catWidth := f.categoryColumnWidth(records)
	builder.WriteString(f.paint(options, "white", "%-14s %-*s %-16s %-14s %s\n",
		"STATUS", catWidth, "CATEGORIES", "DOCUMENT", "RANGE", "FILE"))

	totalWidth := 14 + 1 + catWidth + 1 + 16 + 1 + 14 + 1 + 20
	builder.WriteString(f.paint(options, "white", "%s\n", strings.Repeat("-", totalWidth)))
}

func (f *Formatter) categoryColumnWidth(records []verdict.Record) int {
	width := len("CATEGORIES")
	for _, rec := range records {
		if n := len(strings.Join(rec.Categories, ",")); n > width {
			width = n
		}
	}
	// Cap for readability; all five categories still fit.
	if width > 60 {
		width = 60
	}
	return width
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, rec verdict.Record, all []verdict.Record, options formatters.FormatterOptions) {
	statusColor := f.statusColor(rec)
	statusStr := f.paint(options, statusColor, "[%-12s]", strings.ToUpper(string(rec.Status)))

	cats := strings.Join(rec.Categories, ",")
	catStr := f.paint(options, "cyan", "%-*s", f.categoryColumnWidth(all), cats)

	doc := rec.DocumentID
	if len(doc) > 16 {
		doc = doc[:13] + "..."
	}
	docStr := f.paint(options, "blue", "%-16s", doc)
	rangeStr := f.paint(options, "magenta", "%-14s", rec.ByteRange.String())
	fileStr := f.paint(options, "white", "%s", f.getSmartFilename(rec.FilePath, all))

	fmt.Fprintf(builder, "%s %s %s %s %s\n", statusStr, catStr, docStr, rangeStr, fileStr)
}

func (f *Formatter) statusColor(rec verdict.Record) string {
	switch {
	case !rec.Flagged() && rec.Status == verdict.StatusConfirmed:
		return "green"
	case rec.Status == verdict.StatusInconclusive:
		return "yellow"
	default:
		return "red"
	}
}

// appendDetailedRecord adds detailed record information to the string builder
func (f *Formatter) appendDetailedRecord(builder *strings.Builder, rec verdict.Record, options formatters.FormatterOptions) {
	builder.WriteString(f.paint(options, "white", "=== Span Verdict ===\n"))

	fmt.Fprintf(builder, "%s %s %s %s\n",
		f.paint(options, "cyan", "Span in"),
		f.paint(options, "white", "%s/%s", rec.DocumentID, rec.FilePath),
		f.paint(options, "cyan", "at"),
		f.paint(options, "magenta", "bytes %s", rec.ByteRange.String()))
	if rec.SourceKind != "" {
		fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Source:"), rec.SourceKind)
	}

	fmt.Fprintf(builder, "%s %s %s\n",
		f.paint(options, "cyan", "Categories:"),
		f.paint(options, "white", "%s", strings.Join(rec.Categories, ", ")),
		f.paint(options, f.statusColor(rec), "(%s)", rec.Status))

	if evidence := shared.EvidenceList(rec); len(evidence) > 0 {
		builder.WriteString(f.paint(options, "cyan", "Evidence:\n"))
		for _, e := range evidence {
			fmt.Fprintf(builder, "- %s\n", e)
		}
	}

	if len(rec.Annotations) > 0 {
		builder.WriteString(f.paint(options, "cyan", "Annotations:\n"))
		for _, a := range rec.Annotations {
			label := a.Kind
			if a.Category != "" {
				label += " [" + string(a.Category) + "]"
			}
			fmt.Fprintf(builder, "- %s: %s\n", f.paint(options, "yellow", "%s", label), a.Reason)
		}
	}

	if rec.Text != "" {
		fmt.Fprintf(builder, "%s %q\n", f.paint(options, "cyan", "Text:"), rec.Text)
	}
	fmt.Fprintf(builder, "%s %s  %s %s  %s %s\n",
		f.paint(options, "cyan", "Contract:"), rec.ContractVersion,
		f.paint(options, "cyan", "Signatures:"), rec.SignatureVersion,
		f.paint(options, "cyan", "Key:"), rec.SpanKey)
	builder.WriteString("\n")
}

func (f *Formatter) appendFooter(builder *strings.Builder, summary shared.Summary, options formatters.FormatterOptions) {
	builder.WriteString("\n")
	fmt.Fprintf(builder, "%s %d spans, %s flagged, %d confirmed, %s inconclusive",
		f.paint(options, "white", "Summary:"),
		summary.Records,
		f.paint(options, "red", "%d", summary.Flagged),
		summary.Confirmed,
		f.paint(options, "yellow", "%d", summary.Inconclusive))
	if summary.ExtractionUnavailable > 0 {
		fmt.Fprintf(builder, " (%d without extractor opinion)", summary.ExtractionUnavailable)
	}
	builder.WriteString("\n")

	var cats []string
	for c, n := range summary.ByCategory {
		if c != "none" {
			cats = append(cats, fmt.Sprintf("%s=%d", c, n))
		}
	}
	if len(cats) > 0 {
		sort.Strings(cats)
		fmt.Fprintf(builder, "%s %s\n", f.paint(options, "white", "By category:"), strings.Join(cats, " "))
	}
}

// getSmartFilename returns the basename, or parent/basename when another
// record shares the basename.
func (f *Formatter) getSmartFilename(fullPath string, all []verdict.Record) string {
	if !strings.Contains(fullPath, "/") {
		return fullPath
	}

	parts := strings.Split(fullPath, "/")
	basename := parts[len(parts)-1]

	for _, rec := range all {
		if rec.FilePath == fullPath || !strings.Contains(rec.FilePath, "/") {
			continue
		}
		otherParts := strings.Split(rec.FilePath, "/")
		if otherParts[len(otherParts)-1] == basename {
			return parts[len(parts)-2] + "/" + basename
		}
	}
	return basename
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
