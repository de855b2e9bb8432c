// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ipaddress

import (
	"net/netip"
	"regexp"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const SignatureIP = "ip-like"

// Range classes recorded in match metadata.
const (
	ClassPublic        = "public"
	ClassPrivate       = "private"
	ClassDocumentation = "documentation"
	ClassReserved      = "reserved"
	ClassWellKnown     = "well_known"
)

// Validator implements the detector.Validator interface for detecting
// IP addresses using regex patterns and range classification.
type Validator struct {
	patterns []ipPattern

	// Keywords that suggest the dotted quad is a version or an OID, not an address
	negativeKeywords []string

	// Addresses commonly used as placeholders in tutorials and config samples
	knownTestAddresses map[string]bool

	privateRanges       []netip.Prefix
	reservedRanges      []netip.Prefix
	documentationRanges []netip.Prefix

	contextExtractor *detector.ContextExtractor
}

// ipPattern represents an IP address pattern with its type info
type ipPattern struct {
	name    string
	regex   *regexp.Regexp
	version string
}

// NewValidator creates and returns a new Validator instance
// with predefined patterns and ranges for detecting IP addresses.
func NewValidator() *Validator {
	v := &Validator{
		negativeKeywords: []string{
			"version", "ver.", "release", "build", "revision", "oid", "snmp",
			"section", "figure", "table", "equation", "theorem", "lemma",
		},
		knownTestAddresses: map[string]bool{
			"1.2.3.4": true, "4.3.2.1": true, "0.0.0.0": true,
			"255.255.255.255": true, "127.0.0.1": true,
			"8.8.8.8": true, "8.8.4.4": true, "1.1.1.1": true, "1.0.0.1": true,
			"9.9.9.9": true, "208.67.222.222": true, "208.67.220.220": true,
		},
		privateRanges: prefixes(
			"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "100.64.0.0/10", "fc00::/7",
		),
		reservedRanges: prefixes(
			"0.0.0.0/8", "127.0.0.0/8", "169.254.0.0/16", "224.0.0.0/4", "240.0.0.0/4",
			"::1/128", "fe80::/10", "ff00::/8",
		),
		documentationRanges: prefixes(
			"192.0.2.0/24", "198.51.100.0/24", "203.0.113.0/24", "2001:db8::/32",
		),
		contextExtractor: detector.NewContextExtractor().WithContextChars(24),
	}

	v.patterns = []ipPattern{
		{
			name:    "IPv4",
			regex:   regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)(?:/(?:3[0-2]|[12]?[0-9]))?\b`),
			version: "IPv4",
		},
		{
			// Candidate IPv6 shapes, confirmed with netip below
			name:    "IPv6",
			regex:   regexp.MustCompile(`(?i)(?:[0-9a-f]{1,4}:){2,7}[0-9a-f]{1,4}|(?:[0-9a-f]{1,4}:)+:(?:[0-9a-f]{1,4}:)*[0-9a-f]{1,4}|::(?:[0-9a-f]{1,4}:)*[0-9a-f]{1,4}`),
			version: "IPv6",
		},
	}

	return v
}

func prefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

func (v *Validator) Name() string { return "ipaddress" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignatureIP, Category: taxonomy.NetworkIdentifiers, Description: "IPv4 or IPv6 address, optionally with a prefix length"},
	}
}

// ValidateContent scans a span for IP addresses.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match

	for _, pattern := range v.patterns {
		for _, loc := range pattern.regex.FindAllStringIndex(content, -1) {
			start, end := loc[0], loc[1]
			raw := content[start:end]
			if v.isEmbeddedInString(content, start, end) {
				continue
			}

			addr, ok := parseAddress(raw)
			if !ok {
				continue
			}
			if pattern.version == "IPv6" && addr.Is4() {
				continue
			}
			if pattern.version == "IPv6" && strings.Count(raw, ":") < 2 {
				continue
			}

			ctx := v.contextExtractor.ExtractContext(content, start, end)
			class := v.classify(addr)
			tier := tierFor(class)
			if v.isVersionLike(ctx) {
				tier = detector.ConfidenceLow
			}

			matches = append(matches, detector.Match{
				Signature:  SignatureIP,
				Category:   taxonomy.NetworkIdentifiers,
				Text:       raw,
				Start:      start,
				End:        end,
				Confidence: tier,
				Validator:  v.Name(),
				Context:    ctx,
				Metadata: map[string]any{
					"ip_version": pattern.version,
					"range":      class,
				},
			})
		}
	}
	return matches
}

func parseAddress(raw string) (netip.Addr, bool) {
	if strings.Contains(raw, "/") {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Addr{}, false
		}
		return p.Addr(), true
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

func (v *Validator) classify(addr netip.Addr) string {
	switch {
	case inAny(addr, v.documentationRanges):
		return ClassDocumentation
	case v.knownTestAddresses[addr.String()]:
		return ClassWellKnown
	case inAny(addr, v.reservedRanges):
		return ClassReserved
	case inAny(addr, v.privateRanges):
		return ClassPrivate
	default:
		return ClassPublic
	}
}

func tierFor(class string) detector.Confidence {
	switch class {
	case ClassPublic:
		return detector.ConfidenceHigh
	case ClassPrivate:
		return detector.ConfidenceMedium
	default:
		return detector.ConfidenceLow
	}
}

func inAny(addr netip.Addr, ranges []netip.Prefix) bool {
	for _, p := range ranges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// isVersionLike reports whether the address is more likely a version string,
// a section number or an OID.
func (v *Validator) isVersionLike(ctx detector.ContextInfo) bool {
	before := strings.ToLower(strings.TrimSpace(ctx.BeforeText))
	if strings.HasSuffix(before, "v") || strings.HasSuffix(before, "/") {
		return true
	}
	return len(detector.FindKeywords(detector.ContextInfo{BeforeText: ctx.BeforeText}, v.negativeKeywords)) > 0
}

// isEmbeddedInString rejects dotted numbers glued to identifiers or longer
// numeric runs, e.g. "1.2.3.4.5" or "lib1.2.3.4".
func (v *Validator) isEmbeddedInString(content string, start, end int) bool {
	if start > 0 {
		prev := content[start-1]
		if isAlnum(prev) || prev == '.' || prev == '_' || prev == '-' {
			return true
		}
	}
	if end < len(content) {
		next := content[end]
		if isAlnum(next) || next == '_' {
			return true
		}
		if next == '.' && end+1 < len(content) && isAlnum(content[end+1]) {
			return true
		}
	}
	return false
}

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
