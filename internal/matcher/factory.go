// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"fmt"
	"sort"
	"strings"

	"leakaudit/internal/detector"
	"leakaudit/internal/validators/creditcard"
	"leakaudit/internal/validators/email"
	"leakaudit/internal/validators/ipaddress"
	"leakaudit/internal/validators/netid"
	"leakaudit/internal/validators/personname"
	"leakaudit/internal/validators/phone"
	"leakaudit/internal/validators/scaffold"
	"leakaudit/internal/validators/secrets"
)

// Check names accepted in configuration and on the command line.
const (
	CheckSecrets    = "SECRETS"
	CheckCreditCard = "CREDIT_CARD"
	CheckIPAddress  = "IP_ADDRESS"
	CheckNetworkID  = "NETWORK_ID"
	CheckEmail      = "EMAIL"
	CheckPhone      = "PHONE"
	CheckPersonName = "PERSON_NAME"
	CheckScaffold   = "SCAFFOLD"
)

// AllChecks lists every check in the order validators run.
var AllChecks = []string{
	CheckSecrets, CheckCreditCard, CheckIPAddress, CheckNetworkID,
	CheckEmail, CheckPhone, CheckPersonName, CheckScaffold,
}

// BuildValidatorSet constructs the validators for the enabled checks, in the
// fixed order of AllChecks.
func BuildValidatorSet(enabledChecks map[string]bool) []detector.Validator {
	constructors := map[string]func() detector.Validator{
		CheckSecrets:    func() detector.Validator { return secrets.NewValidator() },
		CheckCreditCard: func() detector.Validator { return creditcard.NewValidator() },
		CheckIPAddress:  func() detector.Validator { return ipaddress.NewValidator() },
		CheckNetworkID:  func() detector.Validator { return netid.NewValidator() },
		CheckEmail:      func() detector.Validator { return email.NewValidator() },
		CheckPhone:      func() detector.Validator { return phone.NewValidator() },
		CheckPersonName: func() detector.Validator { return personname.NewValidator() },
		CheckScaffold:   func() detector.Validator { return scaffold.NewValidator() },
	}

	var result []detector.Validator
	for _, check := range AllChecks {
		if enabledChecks[check] {
			result = append(result, constructors[check]())
		}
	}
	return result
}

// ParseChecksToRun converts a comma separated list (or "all") into the set of
// enabled checks.
func ParseChecksToRun(checks string) (map[string]bool, error) {
	enabled := make(map[string]bool)
	if strings.TrimSpace(checks) == "" || strings.EqualFold(strings.TrimSpace(checks), "all") {
		for _, c := range AllChecks {
			enabled[c] = true
		}
		return enabled, nil
	}

	known := make(map[string]bool, len(AllChecks))
	for _, c := range AllChecks {
		known[c] = true
	}
	for _, part := range strings.Split(checks, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !known[name] {
			sorted := append([]string(nil), AllChecks...)
			sort.Strings(sorted)
			return nil, fmt.Errorf("unknown check %q (available: %s)", part, strings.Join(sorted, ", "))
		}
		enabled[name] = true
	}
	return enabled, nil
}
