// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"bytes"
	"encoding/json"
	"fmt"

	"leakaudit/internal/formatters"
	"leakaudit/internal/formatters/shared"
	"leakaudit/internal/verdict"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output; one record per line with -compact"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

func (f *Formatter) Format(records []verdict.Record, options formatters.FormatterOptions) (string, error) {
	// Compact output is newline-delimited JSON.
	if options.Compact {
		return f.formatLines(shared.PrepareRecords(records, options))
	}

	response := shared.BuildResponse(records, options)
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return string(data), nil
}

func (f *Formatter) formatLines(records []verdict.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("failed to encode record %s: %w", rec.SpanKey, err)
		}
	}
	return buf.String(), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
