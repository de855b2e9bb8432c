// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
	"sync"
)

// ContractVersion identifies the instruction wording. Any edit to
// contract_v1.txt is a breaking change and must come with a new version
// and a new digest.
const ContractVersion = "taxonomy-v1"

//go:embed contract_v1.txt
var contractV1 string

// Contract is the versioned instruction text sent with every span.
type Contract struct {
	Version string
	Text    string
}

var (
	contractOnce    sync.Once
	defaultContract Contract
)

// DefaultContract returns the process-wide contract.
func DefaultContract() Contract {
	contractOnce.Do(func() {
		defaultContract = Contract{Version: ContractVersion, Text: contractV1}
	})
	return defaultContract
}

// Digest is the hex sha256 of the contract text.
func (c Contract) Digest() string {
	sum := sha256.Sum256([]byte(c.Text))
	return hex.EncodeToString(sum[:])
}

// UserMessage frames the span text for the model.
func (c Contract) UserMessage(text string) string {
	var b strings.Builder
	b.WriteString("Fragment:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---")
	return b.String()
}
