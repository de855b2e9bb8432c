// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package creditcard

import (
	"regexp"
	"strconv"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

const (
	SignaturePAN    = "card-number-like"
	SignatureExpiry = "card-expiry-like"
	SignatureCVV    = "card-cvv-like"
)

// Validator detects payment card data: Luhn-valid primary account numbers,
// expiry dates and security codes that appear next to card vocabulary.
type Validator struct {
	regex       *regexp.Regexp
	expiryRegex *regexp.Regexp
	cvvRegex    *regexp.Regexp

	// BIN ranges using range checks instead of massive maps
	binRanges []BINRange

	// Pre-compiled test patterns for fast rejection
	testPatterns []*regexp.Regexp

	positiveKeywords []string
	negativeKeywords []string

	contextExtractor *detector.ContextExtractor
}

// BINRange represents a range of valid BIN numbers for efficient lookup
type BINRange struct {
	Start  int
	End    int
	Vendor string
}

// NewValidator creates and returns a new Validator instance
// with predefined patterns, keywords, and validation rules for detecting card numbers.
func NewValidator() *Validator {
	v := &Validator{
		// Grouped 16/15/14 digit layouts or contiguous runs, bounded by separators
		regex: regexp.MustCompile(`(?:^|[\s,;:=|"'(){}\[\]<>])(\d{4}[\s\-]\d{4}[\s\-]\d{4}[\s\-]\d{4}|\d{4}[\s\-]\d{6}[\s\-]\d{5}|\d{4}[\s\-]\d{6}[\s\-]\d{4}|\d{16}|\d{15}|\d{14})(?:[\s,;.|"'(){}\[\]<>]|$)`),

		expiryRegex: regexp.MustCompile(`(?i)\b(?:exp(?:iry|iration)?(?:\s*date)?|valid\s*thru)\s*[:=]?\s*((?:0[1-9]|1[0-2])\s*/\s*(?:\d{2}|\d{4}))\b`),
		cvvRegex:    regexp.MustCompile(`(?i)\b(?:cvv2?|cvc2?|cid|security\s*code)\s*[:=#]?\s*(\d{3,4})\b`),

		binRanges: initBINRanges(),

		positiveKeywords: []string{
			"credit", "card", "visa", "mastercard", "amex", "american express",
			"discover", "jcb", "diners", "cardholder", "payment", "transaction",
			"purchase", "expiration", "expiry", "exp", "cvv", "cvc", "ccv",
			"billing", "checkout", "pay", "paid", "pci", "merchant",
		},

		negativeKeywords: []string{
			"isbn", "issn", "doi", "arxiv", "timestamp", "unix", "epoch",
			"md5", "sha", "hash", "uuid", "guid", "crc", "checksum",
			"tracking", "serial", "invoice", "order id",
		},

		contextExtractor: detector.NewContextExtractor().WithContextChars(40),
	}

	v.testPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^1234567890123456$`),
		regexp.MustCompile(`^1111222233334444$`),
		regexp.MustCompile(`^4111111111111111$`), // Common test Visa
		regexp.MustCompile(`^4242424242424242$`), // Stripe test Visa
		regexp.MustCompile(`^4012888888881881$`),
		regexp.MustCompile(`^5555555555554444$`), // Common test MasterCard
		regexp.MustCompile(`^5105105105105100$`),
		regexp.MustCompile(`^4000000000000002$`),
		regexp.MustCompile(`^5100000000000008$`),
		regexp.MustCompile(`^378282246310005$`), // Common test Amex
		regexp.MustCompile(`^371449635398431$`),
		regexp.MustCompile(`^340000000000009$`),
		regexp.MustCompile(`^6011111111111117$`), // Common test Discover
		regexp.MustCompile(`^30569309025904$`),   // Common test Diners
	}

	return v
}

// initBINRanges creates BIN ranges using efficient range checks instead of massive maps
func initBINRanges() []BINRange {
	return []BINRange{
		{400000, 499999, "Visa"},

		{510000, 559999, "MasterCard"},
		{222100, 272099, "MasterCard"},

		{340000, 349999, "American Express"},
		{370000, 379999, "American Express"},

		{601100, 601199, "Discover"},
		{644000, 649999, "Discover"},
		{650000, 659999, "Discover"},

		{350000, 359999, "JCB"},

		{300000, 309999, "Diners Club"},
		{360000, 369999, "Diners Club"},
		{380000, 389999, "Diners Club"},

		{620000, 629999, "UnionPay"},

		{500000, 509999, "Maestro"},
		{560000, 589999, "Maestro"},
	}
}

func (v *Validator) Name() string { return "creditcard" }

func (v *Validator) Signatures() []detector.Signature {
	return []detector.Signature{
		{Name: SignaturePAN, Category: taxonomy.Credentials, Description: "Luhn-valid payment card number"},
		{Name: SignatureExpiry, Category: taxonomy.Credentials, Description: "card expiry date next to expiry vocabulary"},
		{Name: SignatureCVV, Category: taxonomy.Credentials, Description: "card security code next to CVV vocabulary"},
	}
}

// ValidateContent scans a span for card data.
func (v *Validator) ValidateContent(content string) []detector.Match {
	var matches []detector.Match

	for _, loc := range v.regex.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[2], loc[3]
		raw := content[start:end]
		clean := cleanCardNumber(raw)

		if !isValidLength(clean) || !luhnCheck(clean) {
			continue
		}

		ctx := v.contextExtractor.ExtractContext(content, start, end)
		vendor := v.detectCardVendor(clean)
		tier, checks := v.classify(clean, ctx)

		matches = append(matches, detector.Match{
			Signature:  SignaturePAN,
			Category:   taxonomy.Credentials,
			Text:       raw,
			Start:      start,
			End:        end,
			Confidence: tier,
			Validator:  v.Name(),
			Context:    ctx,
			Metadata: map[string]any{
				"vendor":            vendor,
				"validation_checks": checks,
			},
		})
	}

	matches = append(matches, v.findAuxiliary(content, v.expiryRegex, SignatureExpiry)...)
	matches = append(matches, v.findAuxiliary(content, v.cvvRegex, SignatureCVV)...)
	return matches
}

// classify maps the validation checks onto a confidence tier.
func (v *Validator) classify(clean string, ctx detector.ContextInfo) (detector.Confidence, map[string]bool) {
	checks := map[string]bool{
		"luhn":          true,
		"vendor":        v.detectCardVendor(clean) != "Unknown",
		"not_test":      !v.isKnownTestPattern(clean),
		"not_repeating": !hasRepeatingPatterns(clean),
		"clean_context": len(detector.FindKeywords(ctx, v.negativeKeywords)) == 0,
		"card_context":  len(detector.FindKeywords(ctx, v.positiveKeywords)) > 0,
	}

	switch {
	case !checks["not_test"] || !checks["not_repeating"] || !checks["clean_context"]:
		return detector.ConfidenceLow, checks
	case !checks["vendor"]:
		return detector.ConfidenceMedium, checks
	default:
		return detector.ConfidenceHigh, checks
	}
}

func (v *Validator) findAuxiliary(content string, re *regexp.Regexp, signature string) []detector.Match {
	var matches []detector.Match
	for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
		matches = append(matches, detector.Match{
			Signature:  signature,
			Category:   taxonomy.Credentials,
			Text:       content[loc[2]:loc[3]],
			Start:      loc[2],
			End:        loc[3],
			Confidence: detector.ConfidenceMedium,
			Validator:  v.Name(),
			Context:    v.contextExtractor.ExtractContext(content, loc[2], loc[3]),
		})
	}
	return matches
}

func (v *Validator) isKnownTestPattern(number string) bool {
	for _, pattern := range v.testPatterns {
		if pattern.MatchString(number) {
			return true
		}
	}
	return false
}

func (v *Validator) detectCardVendor(cardNumber string) string {
	if len(cardNumber) < 6 {
		return "Unknown"
	}

	bin, err := strconv.Atoi(cardNumber[:6])
	if err != nil {
		return "Unknown"
	}

	for _, binRange := range v.binRanges {
		if bin >= binRange.Start && bin <= binRange.End {
			return binRange.Vendor
		}
	}

	return "Unknown"
}

func cleanCardNumber(number string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
}

func isValidLength(number string) bool {
	length := len(number)
	return length == 14 || length == 15 || length == 16
}

// luhnCheck implements the Luhn algorithm
func luhnCheck(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// hasRepeatingPatterns flags long single-digit runs, alternating pairs and
// ascending sequences, which are almost always placeholders.
func hasRepeatingPatterns(number string) bool {
	consecutiveCount := 1
	for i := 1; i < len(number); i++ {
		if number[i] == number[i-1] {
			consecutiveCount++
			if consecutiveCount >= 8 {
				return true
			}
		} else {
			consecutiveCount = 1
		}
	}

	if len(number) >= 8 {
		alternating := true
		for i := 2; i < len(number); i++ {
			if number[i] != number[i-2] {
				alternating = false
				break
			}
		}
		if alternating {
			return true
		}
	}

	sequential := true
	for i := 1; i < len(number); i++ {
		expected := (int(number[i-1]-'0') + 1) % 10
		if int(number[i]-'0') != expected {
			sequential = false
			break
		}
	}
	return sequential
}
