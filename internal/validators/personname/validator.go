// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"regexp"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const (
	SignatureName    = "person-name-like"
	SignatureAddress = "street-address-like"
)

// Validator finds person names that are anchored by a cue (a title, a
// contact verb, a "name:" key) or that start with a known given name, and
// street addresses. Names in bibliographic context are kept at low confidence.
type Validator struct {
	cuedName     *regexp.Regexp
	bareName     *regexp.Regexp
	addressRegex *regexp.Regexp

	// Capitalized words that follow cues but are never names
	nonNames map[string]bool

	bibliographicKeywords []string

	contextExtractor *detector.ContextExtractor
}

// NewValidator creates a Validator with the default name and address patterns.
func NewValidator() *Validator {
	nameCore := `[A-Z][a-z]+(?:[-'][A-Z]?[a-z]+)?(?:\s+[A-Z]\.)?\s+[A-Z][a-z]+(?:[-'][A-Z]?[a-z]+)?`
	return &Validator{
		cuedName: regexp.MustCompile(`(?:\b(?:[Cc]ontact|[Aa]sk|[Ee]mail|[Cc]all|[Pp]ing|[Cc]c|[Mm]essage|[Tt]ext|[Nn]ame\s*[:=]|[Aa]uthor\s*[:=]|[Oo]wner\s*[:=])|\b(?:Dr|Mr|Mrs|Ms|Prof|Professor|Sir|Dame))\.?\s+(` + nameCore + `)`),
		bareName: regexp.MustCompile(`\b(` + nameCore + `)\b`),
		addressRegex: regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St\.|Avenue|Ave\.?|Road|Rd\.|Boulevard|Blvd\.?|Lane|Ln\.|Drive|Court|Ct\.|Way|Place|Pl\.|Terrace|Strasse|Straße)\b`),
		nonNames: map[string]bool{
			"section": true, "figure": true, "table": true, "appendix": true,
			"reviewer": true, "reviewers": true, "support": true, "team": true,
			"us": true, "the": true, "our": true, "this": true, "that": true,
			"program": true, "committee": true, "chair": true, "chairs": true,
			"area": true, "meta": true, "lemma": true, "theorem": true,
			"equation": true, "algorithm": true, "chapter": true, "page": true,
			"dear": true, "hi": true, "hello": true, "thanks": true, "best": true,
		},
		bibliographicKeywords: []string{
			"et al", "proceedings", "journal", "vol.", "pp.", "doi", "arxiv",
			"isbn", "issn", "\\cite", "\\bibitem", "@article", "@inproceedings",
			"author =", "author=", "editors", "in:", "preprint", "conference on",
			"affiliation", "university of", "institute of",
		},
		contextExtractor: detector.NewContextExtractor().WithContextChars(60),
	}
}

func (v *Validator) Name() string { return "personname" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignatureName, Category: taxonomy.PII, Description: "cue-anchored or given-name-led person name"},
		{Name: SignatureAddress, Category: taxonomy.PII, Description: "house number and street name"},
	}
}

// ValidateContent scans a span for names and street addresses.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match
	seen := map[int]bool{}

	for _, loc := range v.cuedName.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[2], loc[3]
		if m, ok := v.nameMatch(content, start, end, "cue"); ok {
			seen[start] = true
			matches = append(matches, m)
		}
	}

	names := GivenNames()
	for _, loc := range v.bareName.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[2], loc[3]
		if seen[start] {
			continue
		}
		first := strings.ToLower(strings.Fields(content[start:end])[0])
		if !names[first] {
			continue
		}
		if m, ok := v.nameMatch(content, start, end, "given_name"); ok {
			matches = append(matches, m)
		}
	}

	for _, loc := range v.addressRegex.FindAllStringIndex(content, -1) {
		matches = append(matches, detector.Match{
			Signature:  SignatureAddress,
			Category:   taxonomy.PII,
			Text:       content[loc[0]:loc[1]],
			Start:      loc[0],
			End:        loc[1],
			Confidence: detector.ConfidenceMedium,
			Validator:  v.Name(),
		})
	}

	return matches
}

func (v *Validator) nameMatch(content string, start, end int, anchor string) (detector.Match, bool) {
	name := content[start:end]
	for _, part := range strings.Fields(name) {
		if v.nonNames[strings.ToLower(strings.TrimSuffix(part, "."))] {
			return detector.Match{}, false
		}
	}

	ctx := v.contextExtractor.ExtractContext(content, start, end)
	tier := detector.ConfidenceMedium
	bibliographic := v.isBibliographic(ctx)
	if bibliographic {
		tier = detector.ConfidenceLow
	}

	return detector.Match{
		Signature:  SignatureName,
		Category:   taxonomy.PII,
		Text:       name,
		Start:      start,
		End:        end,
		Confidence: tier,
		Validator:  v.Name(),
		Context:    ctx,
		Metadata: map[string]any{
			"anchor":        anchor,
			"bibliographic": bibliographic,
		},
	}, true
}

func (v *Validator) isBibliographic(ctx detector.ContextInfo) bool {
	line := strings.ToLower(ctx.FullLine)
	for _, kw := range v.bibliographicKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
