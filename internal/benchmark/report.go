// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"leakaudit/internal/aggregate"
)

// ReportOptions controls the human-readable reports.
type ReportOptions struct {
	NoColor   bool
	MaxMisses int
}

func paint(opts ReportOptions, attr color.Attribute, format string, args ...interface{}) string {
	if opts.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return color.New(attr).Sprintf(format, args...)
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// WriteText prints the score summary followed by up to MaxMisses mismatches.
func (r *Result) WriteText(w io.Writer, opts ReportOptions) error {
	rep := r.Report
	var b strings.Builder

	b.WriteString(paint(opts, color.Bold, "=== Benchmark ===\n"))
	fmt.Fprintf(&b, "Cases:            %d (%d scored, %d skipped)\n", rep.Total, rep.Scored, rep.Skipped)
	fmt.Fprintf(&b, "Exact match:      %d (%.1f%%)\n", rep.Exact, 100*rep.ExactAccuracy)
	fmt.Fprintf(&b, "Hit (incl. none): %d (%.1f%%)\n", rep.Hits, 100*rep.HitRate)
	fmt.Fprintf(&b, "Hit (non-empty):  %d (%.1f%% of labeled)\n", rep.HitsNonEmpty, pct(rep.HitsNonEmpty, rep.AnyExpected))
	fmt.Fprintf(&b, "Any predicted:    %d\n", rep.AnyPredicted)
	fmt.Fprintf(&b, "Any expected:     %d\n", rep.AnyExpected)
	fmt.Fprintf(&b, "FP records:       %s\n", paint(opts, color.FgYellow, "%d", rep.FalsePositiveRecords))
	fmt.Fprintf(&b, "FN records:       %s\n", paint(opts, color.FgRed, "%d", rep.FalseNegativeRecords))
	fmt.Fprintf(&b, "Inconclusive:     %d (%d without extractor opinion)\n", rep.Inconclusive, rep.ExtractionUnavailable)

	b.WriteString("\n")
	b.WriteString(paint(opts, color.Bold, "%-20s %6s %6s %5s %5s %5s %9s %7s\n", "LABEL", "GT", "PRED", "TP", "FP", "FN", "PRECISION", "RECALL"))
	for _, ls := range rep.Labels {
		fmt.Fprintf(&b, "%-20s %6d %6d %5d %5d %5d %9.3f %7.3f\n",
			ls.Label, ls.Expected, ls.Predicted, ls.TP, ls.FP, ls.FN, ls.Precision, ls.Recall)
	}

	misses := r.Misses()
	if opts.MaxMisses > 0 && len(misses) > 0 {
		fmt.Fprintf(&b, "\nMismatches (%d, showing up to %d):\n", len(misses), opts.MaxMisses)
		for i, o := range misses {
			if i == opts.MaxMisses {
				break
			}
			line := fmt.Sprintf("  #%d expected=%s predicted=%s", o.Index, joinOrNone(o.Expected), joinOrNone(o.Predicted))
			if o.Error != "" {
				line += " error=" + o.Error
			}
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes the report and every outcome.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText prints dataset statistics and the retained problems.
func (s DatasetStats) WriteText(w io.Writer, opts ReportOptions) error {
	var b strings.Builder

	b.WriteString(paint(opts, color.Bold, "=== Dataset ===\n"))
	fmt.Fprintf(&b, "Records:        %d\n", s.Total)
	fmt.Fprintf(&b, "Comment length: avg %.1f, min %d, max %d\n", s.CommentLength.Avg, s.CommentLength.Min, s.CommentLength.Max)
	fmt.Fprintf(&b, "Flagged:        true=%d false=%d\n", s.Flagged["true"], s.Flagged["false"])

	b.WriteString("By category:")
	for _, c := range categoryKeys(s.ByCategory) {
		fmt.Fprintf(&b, " %s=%d", c, s.ByCategory[c])
	}
	b.WriteString("\n")

	if labels := s.TopLabels(0); len(labels) > 0 {
		b.WriteString("Extracted labels:\n")
		for _, l := range labels {
			fmt.Fprintf(&b, "  %-24s %d\n", l, s.ExtractedLabels[l])
		}
	}

	if s.IssueCount == 0 {
		b.WriteString(paint(opts, color.FgGreen, "No problems found.\n"))
	} else {
		b.WriteString(paint(opts, color.FgRed, "Problems: %d (showing %d)\n", s.IssueCount, len(s.Issues)))
		for _, issue := range s.Issues {
			fmt.Fprintf(&b, "  %s\n", issue)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes the statistics.
func (s DatasetStats) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// categoryKeys orders the sensitive labels canonically with none last.
func categoryKeys(m map[string]int) []string {
	var out []string
	for _, k := range aggregate.CategoryOrder() {
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func joinOrNone(labels []string) string {
	if len(labels) == 0 {
		return "none"
	}
	return strings.Join(labels, ",")
}
