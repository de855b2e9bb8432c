// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

import (
	"encoding/json"
	"fmt"
	"strings"

	"leakaudit/internal/formatters"
	"leakaudit/internal/formatters/shared"
	"leakaudit/internal/taxonomy"
	"leakaudit/internal/verdict"
	"leakaudit/internal/version"
)

// Formatter implements the formatters.Formatter interface for SARIF output
type Formatter struct{}

// NewFormatter creates a new SARIF formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Name returns the name of the formatter
func (f *Formatter) Name() string {
	return "sarif"
}

// Description returns a brief description of the formatter
func (f *Formatter) Description() string {
	return "SARIF 2.1.0 format, one result per flagged category"
}

// FileExtension returns the recommended file extension for SARIF files
func (f *Formatter) FileExtension() string {
	return ".sarif"
}

// Format converts flagged records to a SARIF 2.1.0 report. Records with a
// {none} verdict have no result.
func (f *Formatter) Format(records []verdict.Record, options formatters.FormatterOptions) (string, error) {
	options.FlaggedOnly = true
	rules := NewRuleManager()

	results := []SARIFResult{}
	for _, rec := range shared.PrepareRecords(records, options) {
		results = append(results, f.mapRecord(rec, rules)...)
	}

	report := &SARIFReport{
		Schema:  SARIFSchemaURL,
		Version: SARIFVersion,
		Runs: []SARIFRun{{
			Tool: SARIFTool{Driver: SARIFDriver{
				Name:            ToolName,
				Version:         version.Short(),
				SemanticVersion: version.Short(),
				Rules:           rules.GetAllRules(),
			}},
			Results: results,
		}},
	}

	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal SARIF report: %w", err)
	}
	return string(jsonBytes), nil
}

// mapRecord emits one result per admitted category.
func (f *Formatter) mapRecord(rec verdict.Record, rules *RuleManager) []SARIFResult {
	level := LevelError
	if rec.Status == verdict.StatusInconclusive {
		level = LevelWarning
	}

	var out []SARIFResult
	for _, name := range rec.Categories {
		c := taxonomy.Category(name)
		rule := rules.GetOrCreateRule(c)

		msg := rule.ShortDescription.Text
		if ev := rec.Evidence[name]; len(ev) > 0 {
			msg += ": " + strings.Join(ev, ", ")
		}

		out = append(out, SARIFResult{
			RuleID:  rule.ID,
			Level:   level,
			Message: SARIFMessage{Text: msg},
			Locations: []SARIFLocation{{
				PhysicalLocation: SARIFPhysicalLocation{
					ArtifactLocation: SARIFArtifactLocation{
						URI:       rec.FilePath,
						URIBaseID: rec.DocumentID,
					},
					Region: SARIFRegion{
						ByteOffset: rec.ByteRange.Start,
						ByteLength: rec.ByteRange.End - rec.ByteRange.Start,
					},
				},
			}},
			PartialFingerprints: map[string]string{"spanKey/v1": rec.SpanKey},
			Properties: map[string]interface{}{
				"document_id":      rec.DocumentID,
				"status":           string(rec.Status),
				"contract_version": rec.ContractVersion,
			},
		})
	}
	return out
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
