// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxIssues bounds how many problems a dataset report lists.
const DefaultMaxIssues = 20

var labelFormat = regexp.MustCompile(`(?i)^[a-z0-9_]+$`)

// Issue is a validation problem found in one record.
type Issue struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("record %d: %s", i.Index, i.Message)
}

// LengthStats summarizes comment lengths in characters.
type LengthStats struct {
	Avg float64 `json:"avg"`
	Min int     `json:"min"`
	Max int     `json:"max"`
}

// DatasetStats describes a labeled dataset.
type DatasetStats struct {
	Total           int            `json:"total"`
	CommentLength   LengthStats    `json:"comment_length"`
	Flagged         map[string]int `json:"flagged"`
	ByCategory      map[string]int `json:"by_category"`
	ExtractedLabels map[string]int `json:"extracted_labels"`
	Issues          []Issue        `json:"issues"`
	IssueCount      int            `json:"issue_count"`
}

// ValidateRecord lists the problems of a single labeled comment record.
func ValidateRecord(rec RawRecord) []string {
	if rec.ParseError != nil {
		return []string{fmt.Sprintf("__parse_error__: %v", rec.ParseError)}
	}
	var issues []string

	if !rec.Has("comments") {
		issues = append(issues, "Missing 'comments'")
	} else if s, ok := rec.String("comments"); !ok {
		issues = append(issues, "'comments' must be a string")
	} else if strings.TrimSpace(s) == "" {
		issues = append(issues, "'comments' is empty")
	}

	if raw, ok := rec.Fields["flagged"]; !ok {
		issues = append(issues, "Missing 'flagged'")
	} else {
		var b bool
		if json.Unmarshal(raw, &b) != nil {
			issues = append(issues, "'flagged' must be a boolean")
		}
	}

	if !rec.Has("classification") {
		issues = append(issues, "Missing 'classification'")
	} else if s, ok := rec.String("classification"); !ok {
		issues = append(issues, "'classification' must be a string")
	} else if ParseGroundTruth(s).Len() == 0 && strings.ToLower(strings.TrimSpace(s)) != "none" {
		issues = append(issues, fmt.Sprintf("'classification' has no valid labels: %q", s))
	}

	raw, ok := rec.Fields["extracted_data"]
	if !ok {
		return append(issues, "Missing 'extracted_data'")
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return append(issues, "'extracted_data' must be a list")
	}
	for j, item := range items {
		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) != nil {
			issues = append(issues, fmt.Sprintf("extracted_data[%d] must be an object", j))
			continue
		}
		_, hasValue := obj["value"]
		_, hasLabel := obj["label"]
		if !hasValue || !hasLabel {
			issues = append(issues, fmt.Sprintf("extracted_data[%d] missing 'value' or 'label'", j))
			continue
		}
		var value, label string
		if json.Unmarshal(obj["value"], &value) != nil || json.Unmarshal(obj["label"], &label) != nil {
			issues = append(issues, fmt.Sprintf("extracted_data[%d] 'value' and 'label' must be strings", j))
			continue
		}
		label = strings.TrimSpace(label)
		if label == "" {
			issues = append(issues, fmt.Sprintf("extracted_data[%d] 'label' is empty", j))
			continue
		}
		if !labelFormat.MatchString(strings.ReplaceAll(label, " ", "_")) {
			issues = append(issues, fmt.Sprintf("extracted_data[%d] unusual label format: %q", j, label))
		}
	}
	return issues
}

// Describe validates every record and computes dataset statistics. At most
// maxIssues problems are kept in the result; IssueCount has the total.
func Describe(records []RawRecord, maxIssues int) DatasetStats {
	if maxIssues <= 0 {
		maxIssues = DefaultMaxIssues
	}
	stats := DatasetStats{
		Total:           len(records),
		Flagged:         map[string]int{"true": 0, "false": 0},
		ByCategory:      make(map[string]int),
		ExtractedLabels: make(map[string]int),
	}

	var lengthSum, lengthCount int
	for i, rec := range records {
		for _, msg := range ValidateRecord(rec) {
			stats.IssueCount++
			if len(stats.Issues) < maxIssues {
				stats.Issues = append(stats.Issues, Issue{Index: i, Message: msg})
			}
		}
		if rec.ParseError != nil {
			continue
		}

		if s, ok := rec.String("comments"); ok {
			n := utf8.RuneCountInString(s)
			if lengthCount == 0 || n < stats.CommentLength.Min {
				stats.CommentLength.Min = n
			}
			if n > stats.CommentLength.Max {
				stats.CommentLength.Max = n
			}
			lengthSum += n
			lengthCount++
		}

		if raw, ok := rec.Fields["flagged"]; ok {
			var b bool
			if json.Unmarshal(raw, &b) == nil {
				stats.Flagged[fmt.Sprint(b)]++
			}
		}

		if s, ok := rec.String("classification"); ok {
			labels := ParseGroundTruth(s)
			if strings.ToLower(strings.TrimSpace(s)) == "none" || labels.Len() == 0 {
				stats.ByCategory["none"]++
			}
			for _, c := range labels.Sorted() {
				stats.ByCategory[string(c)]++
			}
		}

		if raw, ok := rec.Fields["extracted_data"]; ok {
			var items []ExtractedItem
			if json.Unmarshal(raw, &items) == nil {
				for _, item := range items {
					if label := strings.TrimSpace(item.Label); label != "" {
						stats.ExtractedLabels[label]++
					}
				}
			}
		}
	}
	if lengthCount > 0 {
		stats.CommentLength.Avg = float64(lengthSum) / float64(lengthCount)
	}
	return stats
}

// TopLabels returns extracted labels by descending frequency, ties by name.
func (s DatasetStats) TopLabels(n int) []string {
	labels := make([]string, 0, len(s.ExtractedLabels))
	for l := range s.ExtractedLabels {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := s.ExtractedLabels[labels[i]], s.ExtractedLabels[labels[j]]
		if a != b {
			return a > b
		}
		return labels[i] < labels[j]
	})
	if n > 0 && len(labels) > n {
		labels = labels[:n]
	}
	return labels
}
