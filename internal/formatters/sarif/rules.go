// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

import (
	"sync"

	"leakaudit/internal/taxonomy"
)

// RuleManager caches one SARIF rule per category so the driver lists each
// rule once.
type RuleManager struct {
	rules map[taxonomy.Category]*SARIFRule
	mu    sync.RWMutex
}

// NewRuleManager creates a new RuleManager instance
func NewRuleManager() *RuleManager {
	return &RuleManager{
		rules: make(map[taxonomy.Category]*SARIFRule),
	}
}

// GetOrCreateRule retrieves an existing rule or creates a new one for the category
func (rm *RuleManager) GetOrCreateRule(c taxonomy.Category) *SARIFRule {
	rm.mu.RLock()
	if rule, exists := rm.rules[c]; exists {
		rm.mu.RUnlock()
		return rule
	}
	rm.mu.RUnlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	// Double-check in case another goroutine created it
	if rule, exists := rm.rules[c]; exists {
		return rule
	}

	desc := GetRuleDescription(c)
	rule := &SARIFRule{
		ID:               string(c),
		ShortDescription: SARIFMessage{Text: desc.Short},
		FullDescription:  SARIFMessage{Text: desc.Full},
		Help:             SARIFMessage{Text: desc.Help},
	}
	rm.rules[c] = rule
	return rule
}

// GetAllRules returns the cached rules in canonical category order.
func (rm *RuleManager) GetAllRules() []SARIFRule {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rules := make([]SARIFRule, 0, len(rm.rules))
	for _, c := range taxonomy.Sensitive {
		if rule, ok := rm.rules[c]; ok {
			rules = append(rules, *rule)
		}
	}
	return rules
}
