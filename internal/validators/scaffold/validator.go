// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package scaffold

import (
	"regexp"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const (
	SignatureHTTPRequest = "http-request-line"
	SignatureHTTPStatus  = "http-status"
	SignatureTimestamp   = "timestamp"
	SignatureUserAgent   = "user-agent"
)

// Validator recognizes generic tool and log scaffolding. Its matches imply no
// category; the arbiter uses them to tell boilerplate apart from identifiers.
type Validator struct {
	patterns []scaffoldPattern
}

type scaffoldPattern struct {
	signature string
	regex     *regexp.Regexp
}

// NewValidator creates a Validator with the default scaffolding shapes.
func NewValidator() *Validator {
	return &Validator{
		patterns: []scaffoldPattern{
			{SignatureHTTPRequest, regexp.MustCompile(`\b(?:GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+(?:https?://\S+|/\S*)`)},
			{SignatureHTTPStatus, regexp.MustCompile(`(?:->|=>|\bHTTP/\d(?:\.\d)?|\bstatus(?:\s*code)?\s*[:=]?)\s*[1-5]\d{2}\b`)},
			{SignatureTimestamp, regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?\b|\b\d{2}:\d{2}:\d{2}\b`)},
			{SignatureUserAgent, regexp.MustCompile(`(?i)\b(?:UA|User-Agent)\s*:\s*\S+|\b(?:curl|Wget|Mozilla|python-requests|Go-http-client|PostmanRuntime|okhttp)/[\d.]+`)},
		},
	}
}

func (v *Validator) Name() string { return "scaffold" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignatureHTTPRequest, Category: taxonomy.None, Description: "HTTP method and path"},
		{Name: SignatureHTTPStatus, Category: taxonomy.None, Description: "HTTP status code"},
		{Name: SignatureTimestamp, Category: taxonomy.None, Description: "log timestamp"},
		{Name: SignatureUserAgent, Category: taxonomy.None, Description: "user agent string"},
	}
}

// ValidateContent scans a span for scaffolding.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match
	for _, p := range v.patterns {
		for _, loc := range p.regex.FindAllStringIndex(content, -1) {
			matches = append(matches, detector.Match{
				Signature:  p.signature,
				Category:   taxonomy.None,
				Text:       content[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Confidence: detector.ConfidenceLow,
				Validator:  v.Name(),
			})
		}
	}
	return matches
}
