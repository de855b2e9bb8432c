// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"regexp"
	"sort"
)

// Cue is a literal phrase that supports a semantic category.
type Cue struct {
	Text  string
	Start int
	End   int
}

// Cues groups the semantic phrases found in a span. CoAuthor holds phrases
// that refer to a collaborator's work; Address holds greetings and mentions
// ("Alice:", "@bob", "as we discussed") that say who is talking, not what the
// disagreement is about. Directed holds the disagreement and co-author cues
// that share a sentence with no reviewer reference.
type Cues struct {
	Review       []Cue
	Disagreement []Cue
	CoAuthor     []Cue
	Address      []Cue
	Directed     []Cue
}

var (
	reviewCueWords = regexp.MustCompile(`(?i)\b(?:reviewers?|meta-?reviews?|meta-?reviewers?|rebuttals?|area\s+chairs?|senior\s+area\s+chairs?|program\s+committee|camera[- ]ready|author\s+response|response\s+to\s+(?:the\s+)?reviewers?|openreview|shepherd(?:ing)?|major\s+revision|minor\s+revision|revise\s+and\s+resubmit|review\s+(?:comments?|feedback|scores?|report))\b`)
	// Abbreviations are only cues in upper case.
	reviewCueAbbrev = regexp.MustCompile(`\b(?:R[1-6]|AC|SAC|PC|MR|AE)\b`)

	disagreementCues = regexp.MustCompile(`(?i)(?:\bdisagree(?:s|d|ment)?\b|\b(?:they|he|she|you|reviewers?)(?:['’]re|\s+are|\s+is|\s+was|\s+were)\s+(?:\w+\s+)?wrong\b|\bthat(?:['’]s|\s+is)\s+(?:just\s+)?wrong\b|\bthis\s+is\s+wrong\b|\bnot\s+convinced\b|\bi\s+don['’]?t\s+(?:agree|buy|think\s+so|like\s+(?:this|that|your))\b|\bstrongly\s+(?:object|oppose)\b|\bobject\s+to\b|\bpush\s*back\b|\bwe\s+should\s+not\b|\bwe\s+shouldn['’]?t\b|\bi(?:['’]m|\s+am)\s+against\b|\bno\s+way\b|\bdoesn['’]?t\s+make\s+sense\b|\bmakes\s+no\s+sense\b|\bunfair\b|\bnonsense\b)`)

	coAuthorCues = regexp.MustCompile(`(?i)(?:\bco-?authors?\b|\byour\s+(?:section|paragraph|edit|edits|change|changes|version|draft|rewrite|proof|figure|wording)\b|\byou\s+(?:wrote|added|changed|removed|deleted|rewrote|insist)\b|\bi\s+(?:rewrote|reverted|undid|removed)\s+your\b|\b(?:advisor|supervisor)\b)`)

	conversationCues = regexp.MustCompile(`(?i)\b(?:between\s+us|among\s+us|as\s+(?:we|i)\s+discussed)\b`)

	// "Alice:" or "@bob" at the start of a remark addresses a collaborator.
	addressCue = regexp.MustCompile(`(?m)(?:^|[%\s])(?:@[A-Za-z][\w-]{1,30}\b|[A-Z][a-z]{2,15}:\s)`)

	sentenceEnd = regexp.MustCompile(`[.!?;]\s|[.!?;]$|\n`)
)

// FindCues scans text for review, disagreement, co-author and address phrases.
func FindCues(text string) Cues {
	review := collect(text, reviewCueWords)
	review = append(review, collect(text, reviewCueAbbrev)...)
	sortCues(review)

	address := collect(text, conversationCues)
	for _, loc := range addressCue.FindAllStringIndex(text, -1) {
		c := trimCue(text, loc[0], loc[1])
		if !addressIsReviewer(c.Text) {
			address = append(address, c)
		}
	}
	sortCues(address)

	cues := Cues{
		Review:       review,
		Disagreement: collect(text, disagreementCues),
		CoAuthor:     collect(text, coAuthorCues),
		Address:      address,
	}
	cues.Directed = directed(text, cues)
	return cues
}

// directed pairs disagreement with a co-author referent inside one sentence
// that mentions no reviewer. A greeting or mention elsewhere in the span does
// not make a complaint about reviewers a co-author dispute.
func directed(text string, cues Cues) []Cue {
	var out []Cue
	for _, sent := range sentences(text) {
		if anyWithin(cues.Review, sent) {
			continue
		}
		dis := within(cues.Disagreement, sent)
		co := within(cues.CoAuthor, sent)
		if len(dis) == 0 || len(co) == 0 {
			continue
		}
		out = append(out, dis...)
		out = append(out, co...)
	}
	sortCues(out)
	return out
}

type bounds struct{ start, end int }

func sentences(text string) []bounds {
	var out []bounds
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, bounds{start, loc[0] + 1})
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, bounds{start, len(text)})
	}
	return out
}

func within(cues []Cue, b bounds) []Cue {
	var out []Cue
	for _, c := range cues {
		if c.Start >= b.start && c.End <= b.end {
			out = append(out, c)
		}
	}
	return out
}

func anyWithin(cues []Cue, b bounds) bool {
	return len(within(cues, b)) > 0
}

// Texts returns the cue substrings in order.
func Texts(cues []Cue) []string {
	out := make([]string, 0, len(cues))
	for _, c := range cues {
		out = append(out, c.Text)
	}
	return out
}

func collect(text string, re *regexp.Regexp) []Cue {
	var out []Cue
	for _, loc := range re.FindAllStringIndex(text, -1) {
		out = append(out, Cue{Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return out
}

func trimCue(text string, start, end int) Cue {
	for start < end && (text[start] == ' ' || text[start] == '%' || text[start] == '\t' || text[start] == '\n') {
		start++
	}
	for end > start && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	return Cue{Text: text[start:end], Start: start, End: end}
}

var reviewerAddress = map[string]bool{
	"Reviewer:": true, "Reviewers:": true, "Response:": true, "Rebuttal:": true,
	"Note:": true, "Todo:": true, "Fixme:": true, "Answer:": true, "Comment:": true,
	"Summary:": true, "Strengths:": true, "Weaknesses:": true, "Question:": true,
	"Questions:": true, "Edit:": true, "Update:": true, "Example:": true,
}

func addressIsReviewer(s string) bool {
	return reviewerAddress[s]
}

func sortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
}
