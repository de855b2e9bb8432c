// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

import "leakaudit/internal/taxonomy"

// SARIF specification constants
const (
	// SARIFSchemaURL is the URL to the SARIF 2.1.0 JSON schema
	SARIFSchemaURL = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/refs/heads/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

	// SARIFVersion is the SARIF specification version
	SARIFVersion = "2.1.0"

	ToolName = "leakaudit"
)

// SARIF level constants
const (
	// LevelError marks a confirmed finding
	LevelError = "error"

	// LevelWarning marks a finding admitted with an inconclusive status
	LevelWarning = "warning"
)

// RuleDescription contains the description information for a category rule
type RuleDescription struct {
	Short string
	Full  string
	Help  string
}

// RuleDescriptions maps categories to their rule descriptions
var RuleDescriptions = map[taxonomy.Category]RuleDescription{
	taxonomy.Credentials: {
		Short: "Credential disclosed",
		Full:  "A password, API key, token, private key, connection string with password, or payment card data appears in non-rendered material.",
		Help:  "Rotate the credential and remove it from the archive. Comments and unused files are distributed with the source even though they never reach the compiled document.",
	},
	taxonomy.NetworkIdentifiers: {
		Short: "Network identifier disclosed",
		Full:  "A routable IP address, internal hostname, account name, MAC address or port that locates infrastructure appears in non-rendered material.",
		Help:  "Remove the identifier or replace it with a documentation address (RFC 5737, RFC 3849) or an example.com name.",
	},
	taxonomy.PII: {
		Short: "Personal information disclosed",
		Full:  "A personal email address, phone number, street address or the name of a private individual appears in non-rendered material.",
		Help:  "Remove the personal data. Role mailboxes and bibliographic author names are not reported.",
	},
	taxonomy.Conflict: {
		Short: "Author disagreement disclosed",
		Full:  "An explicit disagreement between co-authors appears in a comment.",
		Help:  "Internal discussion between authors should be removed before the source is published.",
	},
	taxonomy.PeerReview: {
		Short: "Peer-review content disclosed",
		Full:  "A comment refers to reviewers, rebuttals or other parts of a confidential review process.",
		Help:  "Review correspondence is usually confidential; remove it before the source is published.",
	},
}

// GetRuleDescription returns the rule description for a category
func GetRuleDescription(c taxonomy.Category) RuleDescription {
	if desc, exists := RuleDescriptions[c]; exists {
		return desc
	}
	return RuleDescription{
		Short: string(c) + " disclosed",
		Full:  "Sensitive content of category " + string(c) + " was found.",
	}
}
