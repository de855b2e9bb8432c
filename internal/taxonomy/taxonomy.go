// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package taxonomy defines the fixed category vocabulary shared by the
// extractor contract, the arbiter and every output format.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a single label of the sensitive-content taxonomy.
type Category string

const (
	Credentials        Category = "credentials"
	NetworkIdentifiers Category = "network_identifiers"
	PII                Category = "pii"
	Conflict           Category = "conflict"
	PeerReview         Category = "peerreview"
	None               Category = "none"
)

// Sensitive lists the five admissible categories in canonical order.
var Sensitive = []Category{Credentials, NetworkIdentifiers, PII, Conflict, PeerReview}

// Semantic categories require contextual reading and are never admitted on a
// structural pattern alone.
var Semantic = map[Category]bool{
	PII:        true,
	Conflict:   true,
	PeerReview: true,
}

var rank = map[Category]int{
	Credentials:        0,
	NetworkIdentifiers: 1,
	PII:                2,
	Conflict:           3,
	PeerReview:         4,
	None:               5,
}

// Valid reports whether c is part of the vocabulary (including none).
func (c Category) Valid() bool {
	_, ok := rank[c]
	return ok
}

func (c Category) String() string { return string(c) }

// Parse converts a token into a Category. Tokens are case-insensitive and a
// trailing colon is tolerated ("network_identifiers:").
func Parse(token string) (Category, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.TrimSuffix(t, ":")
	c := Category(t)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", token)
	}
	return c, nil
}

// Set is an unordered collection of categories.
type Set map[Category]struct{}

// NewSet builds a set from the given categories.
func NewSet(cats ...Category) Set {
	s := make(Set, len(cats))
	for _, c := range cats {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) Add(c Category) { s[c] = struct{}{} }
func (s Set) Remove(c Category) { delete(s, c) }
func (s Set) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

func (s Set) Len() int { return len(s) }
func (s Set) IsNone() bool { return len(s) == 1 && s.Has(None) }
func (s Set) Equal(other Set) bool { return sameMembers(s, other) }
func (s Set) Contains(other Set) bool { return containsAll(s, other) }

// Sorted returns the members in canonical taxonomy order.
func (s Set) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}

// Strings returns the sorted members as plain strings.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, c := range sorted {
		out[i] = string(c)
	}
	return out
}

// Normalize enforces none-exclusivity: an empty set becomes {none} and none is
// dropped whenever any sensitive category is present.
func (s Set) Normalize() Set {
	out := make(Set, len(s))
	for c := range s {
		if c != None {
			out.Add(c)
		}
	}
	if len(out) == 0 {
		out.Add(None)
	}
	return out
}

// ParseList parses a comma separated label list such as "credentials,pii".
// An empty list or a bare "none" yields {none}.
func ParseList(list string) (Set, error) {
	s := NewSet()
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Parse(part)
		if err != nil {
			return nil, err
		}
		s.Add(c)
	}
	return s.Normalize(), nil
}

func sameMembers(a, b Set) bool {
	return len(a) == len(b) && containsAll(a, b)
}

func containsAll(a, b Set) bool {
	for c := range b {
		if !a.Has(c) {
			return false
		}
	}
	return true
}
