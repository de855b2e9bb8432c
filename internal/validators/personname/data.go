// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
)

//go:embed data/given_names.txt
var givenNamesData string

var (
	givenNames map[string]bool
	loadOnce   sync.Once
)

// GivenNames returns the embedded given-name list, loaded once on first use.
func GivenNames() map[string]bool {
	loadOnce.Do(func() {
		givenNames = loadNames(givenNamesData)
	})
	return givenNames
}

func loadNames(data string) map[string]bool {
	names := make(map[string]bool, 300)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if isValidName(name) {
			names[strings.ToLower(name)] = true
		}
	}
	return names
}

// isValidName performs basic validation on name data
func isValidName(name string) bool {
	if len(name) < 2 || len(name) > 30 {
		return false
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}
