// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token   string
		want    Category
		wantErr bool
	}{
		{token: "credentials", want: Credentials},
		{token: " PII ", want: PII},
		{token: "network_identifiers:", want: NetworkIdentifiers},
		{token: "PeerReview", want: PeerReview},
		{token: "none", want: None},
		{token: "secrets", wantErr: true},
		{token: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Parse(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_Normalize(t *testing.T) {
	assert.Equal(t, []Category{None}, NewSet().Normalize().Sorted())
	assert.Equal(t, []Category{PII}, NewSet(None, PII).Normalize().Sorted())
	assert.True(t, NewSet(None).Normalize().IsNone())
}

func TestSet_SortedIsCanonical(t *testing.T) {
	s := NewSet(PeerReview, Credentials, Conflict, NetworkIdentifiers, PII)
	assert.Equal(t, Sensitive, s.Sorted())
	assert.Equal(t, []string{"credentials", "network_identifiers", "pii", "conflict", "peerreview"}, s.Strings())
}

func TestSet_Compare(t *testing.T) {
	a := NewSet(Credentials, PII)
	assert.True(t, a.Equal(NewSet(PII, Credentials)))
	assert.False(t, a.Equal(NewSet(PII)))
	assert.True(t, a.Contains(NewSet(PII)))
	assert.False(t, NewSet(PII).Contains(a))

	a.Remove(PII)
	assert.Equal(t, 1, a.Len())
	assert.False(t, a.Has(PII))
}

func TestParseList(t *testing.T) {
	s, err := ParseList("credentials, network_identifiers")
	require.NoError(t, err)
	assert.True(t, s.Equal(NewSet(Credentials, NetworkIdentifiers)))

	s, err = ParseList("")
	require.NoError(t, err)
	assert.True(t, s.IsNone())

	s, err = ParseList("none,pii")
	require.NoError(t, err)
	assert.Equal(t, []Category{PII}, s.Sorted())

	_, err = ParseList("pii,passwords")
	assert.ErrorContains(t, err, "passwords")
}
