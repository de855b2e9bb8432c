// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"leakaudit/internal/formatters"
	"leakaudit/internal/formatters/shared"
	"leakaudit/internal/verdict"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(records []verdict.Record, options formatters.FormatterOptions) (string, error) {
	headers := []string{"document_id", "file_path", "start", "end", "categories", "status", "evidence"}
	if options.Verbose {
		headers = append(headers, "source_kind", "annotations", "span_key", "text_sha256")
	}

	csvRows := []string{strings.Join(headers, ",")}
	for _, rec := range shared.PrepareRecords(records, options) {
		csvRows = append(csvRows, f.createCSVRow(rec, options))
	}
	return strings.Join(csvRows, "\n") + "\n", nil
}

// createCSVRow creates a CSV row for a record. Multi-valued fields are
// joined with "; ".
func (f *Formatter) createCSVRow(rec verdict.Record, options formatters.FormatterOptions) string {
	row := []string{
		f.escapeCSVField(rec.DocumentID),
		f.escapeCSVField(rec.FilePath),
		fmt.Sprintf("%d", rec.ByteRange.Start),
		fmt.Sprintf("%d", rec.ByteRange.End),
		f.escapeCSVField(strings.Join(rec.Categories, ";")),
		string(rec.Status),
		f.escapeCSVField(strings.Join(shared.EvidenceList(rec), "; ")),
	}

	if options.Verbose {
		var notes []string
		for _, a := range rec.Annotations {
			note := a.Kind
			if a.Category != "" {
				note += "(" + string(a.Category) + ")"
			}
			notes = append(notes, note+": "+a.Reason)
		}
		row = append(row,
			string(rec.SourceKind),
			f.escapeCSVField(strings.Join(notes, "; ")),
			rec.SpanKey,
			rec.TextSHA256,
		)
	}

	return strings.Join(row, ",")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	// Prevent CSV injection by sanitizing formula characters
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		// Prefix with single quote to prevent formula execution
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
