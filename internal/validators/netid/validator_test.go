// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package netid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/detector"
	"leakaudit/internal/taxonomy"
)

func bySignature(matches []detector.Match, signature string) []detector.Match {
	var out []detector.Match
	for _, m := range matches {
		if m.Signature == signature {
			out = append(out, m)
		}
	}
	return out
}

func TestValidateContent_Hostnames(t *testing.T) {
	tests := []struct {
		name    string
		content string
		text    string
		tier    detector.Confidence
		keyed   bool
	}{
		{"keyed host", "host=db.prod.acme.io", "db.prod.acme.io", detector.ConfidenceHigh, true},
		{"keyed documentation host", "host=api.example.com", "api.example.com", detector.ConfidenceMedium, true},
		{"keyed internal host", "server=build01.corp", "build01.corp", detector.ConfidenceHigh, true},
		{"keyed host with port", "host=cache-01:6379", "cache-01", detector.ConfidenceHigh, true},
		{"internal suffix", "ssh into cache01.internal first", "cache01.internal", detector.ConfidenceMedium, false},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts := bySignature(v.ValidateContent(tt.content), SignatureHostname)
			require.Len(t, hosts, 1)
			assert.Equal(t, tt.text, hosts[0].Text)
			assert.Equal(t, tt.tier, hosts[0].Confidence)
			assert.Equal(t, tt.keyed, hosts[0].Metadata["keyed"])
			assert.Equal(t, taxonomy.NetworkIdentifiers, hosts[0].Category)
		})
	}
}

func TestValidateContent_KeyedAddressLiterals(t *testing.T) {
	v := NewValidator()
	for _, content := range []string{
		"host=192.0.2.10",
		"server: 198.51.100.7",
		"endpoint=2001:db8::1",
		"endpoint = 2001:db8:85a3::8a2e:370:7334.",
		"db_host = 203.0.113.5:5432",
		"host=10.0.4.17",
		"remote => fe80::",
	} {
		assert.Empty(t, bySignature(v.ValidateContent(content), SignatureHostname), content)
	}
}

func TestValidateContent_Skipped(t *testing.T) {
	v := NewValidator()
	for _, content := range []string{
		"host=localhost",
		"server: server",
		"host=db",
		"mail jane@mx.corp",
	} {
		assert.Empty(t, bySignature(v.ValidateContent(content), SignatureHostname), content)
	}
}

func TestValidateContent_Accounts(t *testing.T) {
	v := NewValidator()

	accounts := bySignature(v.ValidateContent("login as user=jdoe42."), SignatureAccount)
	require.Len(t, accounts, 1)
	assert.Equal(t, "jdoe42", accounts[0].Text)
	assert.Equal(t, detector.ConfidenceHigh, accounts[0].Confidence)

	accounts = bySignature(v.ValidateContent("username=your_username"), SignatureAccount)
	require.Len(t, accounts, 1)
	assert.Equal(t, detector.ConfidenceLow, accounts[0].Confidence)
}

func TestValidateContent_MACAndPort(t *testing.T) {
	v := NewValidator()

	macs := bySignature(v.ValidateContent("mac 3c:22:fb:91:0e:7a and 00:00:5e:00:53:01"), SignatureMAC)
	require.Len(t, macs, 2)
	assert.Equal(t, detector.ConfidenceHigh, macs[0].Confidence)
	assert.Equal(t, detector.ConfidenceLow, macs[1].Confidence)

	ports := bySignature(v.ValidateContent("listening on port 5432"), SignaturePort)
	require.Len(t, ports, 1)
	assert.Equal(t, "5432", ports[0].Text)
	assert.Equal(t, detector.ConfidenceMedium, ports[0].Confidence)
}

func TestIsAddressLiteral(t *testing.T) {
	tests := []struct {
		content string
		host    string
		want    bool
	}{
		{"192.0.2.10", "192.0.2.10", true},
		{"2001:db8::1", "2001", true},
		{"fe80::", "fe80", true},
		{"10.0.0.1:8080", "10.0.0.1", true},
		{"cafe.internal", "cafe.internal", false},
		{"db01:5432", "db01", false},
		{"beef:1", "beef", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isAddressLiteral(tt.content, 0, tt.host), tt.content)
	}
}
