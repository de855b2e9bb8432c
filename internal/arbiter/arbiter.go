// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package arbiter reconciles signature matches and the extractor's opinion
// into a single verdict. It never fails: when admission is in doubt the
// category is withheld and the reason is recorded.
package arbiter

import (
	"fmt"

	"leakaudit/internal/detector"
	"leakaudit/internal/extractor"
	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
	"leakaudit/internal/validators/creditcard"
	"leakaudit/internal/validators/email"
	"leakaudit/internal/validators/personname"
	"leakaudit/internal/validators/phone"
	"leakaudit/internal/verdict"
)

// decision accumulates the admitted set while the rules run.
type decision struct {
	admitted    taxonomy.Set
	evidence    map[taxonomy.Category][]string
	annotations []verdict.Annotation
}

func newDecision() *decision {
	return &decision{
		admitted: taxonomy.NewSet(),
		evidence: make(map[taxonomy.Category][]string),
	}
}

func (d *decision) admit(c taxonomy.Category, evidence ...string) {
	d.admitted.Add(c)
	for _, e := range evidence {
		if e == "" || contains(d.evidence[c], e) {
			continue
		}
		d.evidence[c] = append(d.evidence[c], e)
	}
}

func (d *decision) withhold(c taxonomy.Category, format string, args ...any) {
	d.annotations = append(d.annotations, verdict.Annotation{
		Kind:     verdict.AnnotationAmbiguousEvidence,
		Category: c,
		Reason:   fmt.Sprintf(format, args...),
	})
}

func (d *decision) note(kind string, c taxonomy.Category, reason string) {
	d.annotations = append(d.annotations, verdict.Annotation{Kind: kind, Category: c, Reason: reason})
}

func (d *decision) verdict() verdict.Verdict {
	return verdict.New(d.admitted, d.evidence, d.annotations)
}

// Reconcile decides the verdict for s from its signature matches and the
// extractor outcome. Matches are expected to come from the matcher, which has
// already discarded hits on masked values.
func Reconcile(s span.Span, matches []detector.Match, outcome extractor.Outcome) verdict.Verdict {
	d := newDecision()
	ev := evidenceFrom(matches)
	opinion := outcome.Opinion
	claims := func(c taxonomy.Category) bool { return outcome.Available && opinion.Names(c) }

	if !outcome.Available {
		reason := string(outcome.Kind)
		if reason == "" {
			reason = string(extractor.KindTransientUnavailable)
		}
		if outcome.Err != nil {
			reason += ": " + outcome.Err.Error()
		}
		d.note(verdict.AnnotationExtractionUnavailable, "", reason)

		// No opinion and nothing structurally certain: stop here.
		if !ev.anyHigh() {
			return d.verdict()
		}
	}

	// Scaffolding never yields credentials or network identifiers, whatever
	// the extractor says. The discussion rules read cues, not matches, and
	// still run.
	if ev.scaffoldOnly() {
		for _, c := range []taxonomy.Category{taxonomy.Credentials, taxonomy.NetworkIdentifiers} {
			if claims(c) {
				d.withhold(c, "only generic request/log scaffolding is present")
			}
		}
	} else {
		admitStructural(d, ev, taxonomy.Credentials, claims(taxonomy.Credentials), outcome.Available)
		admitStructural(d, ev, taxonomy.NetworkIdentifiers, claims(taxonomy.NetworkIdentifiers), outcome.Available)
	}

	if outcome.Available {
		admitPII(d, ev, claims(taxonomy.PII))
		admitDiscussion(d, FindCues(s.Text), claims(taxonomy.Conflict), claims(taxonomy.PeerReview))
	}

	return d.verdict()
}

// admitStructural handles credentials and network_identifiers. High matches
// stand alone; medium matches need the extractor to name the category.
func admitStructural(d *decision, ev matchEvidence, c taxonomy.Category, claimed, available bool) {
	high := ev.texts(c, detector.ConfidenceHigh)
	medium := ev.texts(c, detector.ConfidenceMedium)

	switch {
	case len(high) > 0:
		d.admit(c, high...)
		if claimed {
			d.admit(c, medium...)
		}
	case len(medium) > 0 && claimed:
		d.admit(c, medium...)
	case len(medium) > 0 && available:
		d.withhold(c, "medium-confidence signature %q not corroborated by the extractor", medium[0])
	case len(medium) > 0:
		d.withhold(c, "medium-confidence signature %q needs the extractor, which was unavailable", medium[0])
	case claimed && ev.hasLow(c):
		d.withhold(c, "extractor claim rests only on documented, test or placeholder values")
	case claimed:
		d.withhold(c, "extractor claim has no literal support in the text")
	}
}

// admitPII applies the personal-data rules: card data with a co-occurring
// name, email or phone forces pii; otherwise the extractor must claim it and
// the text must show a personal email, phone, name or street address.
func admitPII(d *decision, ev matchEvidence, claimed bool) {
	personal := ev.personalPII()
	cardAdmitted := d.admitted.Has(taxonomy.Credentials) && ev.hasSignature(creditcard.SignaturePAN, detector.ConfidenceMedium)

	switch {
	case cardAdmitted && len(personal) > 0:
		d.admit(taxonomy.PII, personal...)
	case claimed && len(personal) > 0:
		d.admit(taxonomy.PII, personal...)
	case claimed && ev.onlyRoleMail():
		d.withhold(taxonomy.PII, "email addresses present are role, shared or test mailboxes")
	case claimed && ev.onlyBibliographic():
		d.withhold(taxonomy.PII, "names appear only as bibliographic data")
	case claimed:
		d.withhold(taxonomy.PII, "extractor claim has no personal email, phone, name or address in the text")
	case len(personal) > 0 && ev.hasPersonalMail():
		d.withhold(taxonomy.PII, "personal email %q not corroborated by the extractor", ev.firstPersonalMail())
	}
}

// admitDiscussion applies the conflict/peerreview rules. Disagreement in a
// span that is about reviewers is reclassified as peerreview unless a
// sentence free of reviewer references aims it at a co-author's work.
// Greetings and mentions alone never count as that aim.
func admitDiscussion(d *decision, cues Cues, claimsConflict, claimsReview bool) {
	reviewCtx := len(cues.Review) > 0

	if claimsConflict {
		switch {
		case len(cues.Disagreement) == 0:
			d.withhold(taxonomy.Conflict, "no explicit disagreement in the text")
		case !reviewCtx:
			evidence := Texts(cues.Disagreement)
			evidence = append(evidence, Texts(cues.CoAuthor)...)
			d.admit(taxonomy.Conflict, evidence...)
		case len(cues.Directed) > 0:
			d.admit(taxonomy.Conflict, Texts(cues.Directed)...)
		default:
			d.note(verdict.AnnotationReclassified, taxonomy.Conflict, "disagreement is with reviewers, recorded as peerreview")
			d.admit(taxonomy.PeerReview, Texts(cues.Review)...)
		}
	}

	if claimsReview {
		if reviewCtx {
			d.admit(taxonomy.PeerReview, Texts(cues.Review)...)
		} else {
			d.withhold(taxonomy.PeerReview, "no review-process reference in the text")
		}
	}
}

// matchEvidence indexes the matches the rules consult.
type matchEvidence struct {
	matches []detector.Match
}

func evidenceFrom(matches []detector.Match) matchEvidence {
	return matchEvidence{matches: matches}
}

// anyHigh reports a high-tier credential or network identifier match.
func (e matchEvidence) anyHigh() bool {
	for _, m := range e.matches {
		if m.Supports(true) && (m.Category == taxonomy.Credentials || m.Category == taxonomy.NetworkIdentifiers) {
			return true
		}
	}
	return false
}

// scaffoldOnly reports whether every match is scaffolding or low-tier and at
// least one scaffold match exists.
func (e matchEvidence) scaffoldOnly() bool {
	scaffold := false
	for _, m := range e.matches {
		if m.Category == taxonomy.None {
			scaffold = true
			continue
		}
		if m.Confidence >= detector.ConfidenceMedium {
			return false
		}
	}
	return scaffold
}

func (e matchEvidence) texts(c taxonomy.Category, tier detector.Confidence) []string {
	var out []string
	for _, m := range e.matches {
		if m.Category == c && m.Confidence == tier && !contains(out, m.Text) {
			out = append(out, m.Text)
		}
	}
	return out
}

func (e matchEvidence) hasLow(c taxonomy.Category) bool {
	for _, m := range e.matches {
		if m.Category == c && m.Confidence == detector.ConfidenceLow {
			return true
		}
	}
	return false
}

func (e matchEvidence) hasSignature(name string, min detector.Confidence) bool {
	for _, m := range e.matches {
		if m.Signature == name && m.Confidence >= min {
			return true
		}
	}
	return false
}

// personalPII returns literal personal data: personal mailboxes, phone
// numbers, non-bibliographic names and street addresses.
func (e matchEvidence) personalPII() []string {
	var out []string
	for _, m := range e.matches {
		if m.Category != taxonomy.PII || m.Confidence < detector.ConfidenceMedium {
			continue
		}
		switch m.Signature {
		case email.SignatureEmail:
			if m.MetaString("kind") != email.KindPersonal {
				continue
			}
		case personname.SignatureName:
			if b, _ := m.Metadata["bibliographic"].(bool); b {
				continue
			}
		case phone.SignaturePhone, personname.SignatureAddress:
		default:
			continue
		}
		if !contains(out, m.Text) {
			out = append(out, m.Text)
		}
	}
	return out
}

func (e matchEvidence) hasPersonalMail() bool {
	return e.firstPersonalMail() != ""
}

func (e matchEvidence) firstPersonalMail() string {
	for _, m := range e.matches {
		if m.Signature == email.SignatureEmail && m.MetaString("kind") == email.KindPersonal {
			return m.Text
		}
	}
	return ""
}

func (e matchEvidence) onlyRoleMail() bool {
	found := false
	for _, m := range e.matches {
		if m.Signature != email.SignatureEmail {
			continue
		}
		if m.MetaString("kind") == email.KindPersonal {
			return false
		}
		found = true
	}
	return found
}

func (e matchEvidence) onlyBibliographic() bool {
	found := false
	for _, m := range e.matches {
		if m.Signature != personname.SignatureName {
			continue
		}
		if b, _ := m.Metadata["bibliographic"].(bool); !b {
			return false
		}
		found = true
	}
	return found
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
