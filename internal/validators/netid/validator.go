// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package netid

import (
	"net/netip"
	"regexp"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const (
	SignatureHostname = "hostname-like"
	SignatureAccount  = "account-id-like"
	SignatureMAC      = "mac-address-like"
	SignaturePort     = "port-like"
)

// Validator detects identifiers that name machines or accounts without being
// secret: hostnames, usernames and account ids, MAC addresses and ports.
// Bare domain names are ignored unless they are keyed ("host=...") or carry an
// internal-only suffix.
type Validator struct {
	keyedHostRegex *regexp.Regexp
	internalHost   *regexp.Regexp
	accountRegex   *regexp.Regexp
	macRegex       *regexp.Regexp
	portRegex      *regexp.Regexp

	documentationDomains []string
	internalSuffixes     []string
	placeholderValues    map[string]bool
}

// NewValidator creates a Validator with the default identifier patterns.
func NewValidator() *Validator {
	return &Validator{
		keyedHostRegex: regexp.MustCompile(`(?i)\b(?:host(?:name)?|server|endpoint|machine|workstation|computer(?:\s*name)?|node|db_host|smtp_host|remote)\s*(?:[:=]|=>)\s*["']?([a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*)`),
		internalHost:   regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+(?:internal|local|lan|corp|intranet|intra|home\.arpa)\b`),
		accountRegex:   regexp.MustCompile(`(?i)\b(?:user(?:name)?|user_?id|login|uid|account(?:_?id)?|acct|owner|ssh_user|db_user)\s*(?:[:=]|=>)\s*["']?([A-Za-z0-9][A-Za-z0-9._@+-]{1,63})`),
		macRegex:       regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
		portRegex:      regexp.MustCompile(`(?i)\bport\s*(?:[:=#]|=>)?\s*(\d{2,5})\b`),

		documentationDomains: []string{
			"example.com", "example.org", "example.net", "example.edu",
		},
		internalSuffixes: []string{".test", ".example", ".invalid", ".localhost"},
		placeholderValues: map[string]bool{
			"user": true, "username": true, "your_username": true, "yourname": true,
			"name": true, "login": true, "foo": true, "bar": true, "test": true,
			"example": true, "xxx": true, "none": true, "null": true, "nil": true,
			"localhost": true, "host": true, "hostname": true, "server": true,
			"true": true, "false": true, "id": true,
		},
	}
}

func (v *Validator) Name() string { return "netid" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignatureHostname, Category: taxonomy.NetworkIdentifiers, Description: "keyed or internal-only hostname"},
		{Name: SignatureAccount, Category: taxonomy.NetworkIdentifiers, Description: "username, login or account id assignment"},
		{Name: SignatureMAC, Category: taxonomy.NetworkIdentifiers, Description: "colon or dash separated MAC address"},
		{Name: SignaturePort, Category: taxonomy.NetworkIdentifiers, Description: "explicit port number"},
	}
}

// ValidateContent scans a span for identifiers.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match

	keyed := map[int]bool{}
	for _, loc := range v.keyedHostRegex.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[2], loc[3]
		host := content[start:end]
		if v.placeholderValues[strings.ToLower(host)] || !strings.Contains(host, ".") && len(host) < 3 {
			continue
		}
		// Address literals belong to the ipaddress validator, which knows
		// the documentation and private ranges.
		if isAddressLiteral(content, start, host) {
			continue
		}
		keyed[start] = true
		tier := detector.ConfidenceHigh
		if v.isDocumentationHost(host) {
			tier = detector.ConfidenceMedium
		}
		matches = append(matches, v.newMatch(SignatureHostname, content, start, end, tier, map[string]any{"keyed": true}))
	}

	for _, loc := range v.internalHost.FindAllStringIndex(content, -1) {
		if keyed[loc[0]] || isInsideEmail(content, loc[0]) {
			continue
		}
		matches = append(matches, v.newMatch(SignatureHostname, content, loc[0], loc[1], detector.ConfidenceMedium, map[string]any{"keyed": false}))
	}

	for _, loc := range v.accountRegex.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[2], loc[3]
		value := strings.TrimRight(content[start:end], ".")
		end = start + len(value)
		tier := detector.ConfidenceHigh
		if v.placeholderValues[strings.ToLower(value)] {
			tier = detector.ConfidenceLow
		}
		matches = append(matches, v.newMatch(SignatureAccount, content, start, end, tier, nil))
	}

	for _, loc := range v.macRegex.FindAllStringIndex(content, -1) {
		mac := strings.ToLower(content[loc[0]:loc[1]])
		tier := detector.ConfidenceHigh
		if isPlaceholderMAC(mac) {
			tier = detector.ConfidenceLow
		}
		matches = append(matches, v.newMatch(SignatureMAC, content, loc[0], loc[1], tier, nil))
	}

	for _, loc := range v.portRegex.FindAllStringSubmatchIndex(content, -1) {
		matches = append(matches, v.newMatch(SignaturePort, content, loc[2], loc[3], detector.ConfidenceMedium, nil))
	}

	return matches
}

func (v *Validator) newMatch(signature, content string, start, end int, tier detector.Confidence, meta map[string]any) detector.Match {
	return detector.Match{
		Signature:  signature,
		Category:   taxonomy.NetworkIdentifiers,
		Text:       content[start:end],
		Start:      start,
		End:        end,
		Confidence: tier,
		Validator:  v.Name(),
		Metadata:   meta,
	}
}

// isDocumentationHost reports RFC 2606 and RFC 6761 names.
func (v *Validator) isDocumentationHost(host string) bool {
	h := strings.ToLower(host)
	for _, d := range v.documentationDomains {
		if h == d || strings.HasSuffix(h, "."+d) {
			return true
		}
	}
	for _, suffix := range v.internalSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return h == "localhost"
}

// isAddressLiteral reports whether the keyed value at start is an IP address.
// The host pattern stops at the first colon, so an IPv6 value is re-read over
// its full run of hex digits, colons and dots.
func isAddressLiteral(content string, start int, host string) bool {
	end := start
	for end < len(content) && isAddressByte(content[end]) {
		end++
	}
	run := content[start:end]
	for _, candidate := range []string{host, run, strings.TrimRight(run, ".:")} {
		if _, err := netip.ParseAddr(candidate); err == nil {
			return true
		}
	}
	return false
}

func isAddressByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') || b == ':' || b == '.'
}

func isInsideEmail(content string, start int) bool {
	return start > 0 && content[start-1] == '@'
}

func isPlaceholderMAC(mac string) bool {
	norm := strings.ReplaceAll(mac, "-", ":")
	switch norm {
	case "00:00:00:00:00:00", "ff:ff:ff:ff:ff:ff", "01:23:45:67:89:ab", "aa:bb:cc:dd:ee:ff", "12:34:56:78:9a:bc":
		return true
	}
	// RFC 7042 documentation block
	return strings.HasPrefix(norm, "00:00:5e:00:53:")
}
