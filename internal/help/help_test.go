// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/matcher"
)

func TestChecks_CoversEveryCheck(t *testing.T) {
	infos := Checks()
	require.Len(t, infos, len(matcher.AllChecks))
	for i, info := range infos {
		assert.Equal(t, matcher.AllChecks[i], info.Name)
		assert.NotEmpty(t, info.Signatures, info.Name)
	}
}

func TestShowChecksHelp(t *testing.T) {
	var buf bytes.Buffer
	NewSystem(&buf, true).ShowChecksHelp()
	out := buf.String()
	assert.Contains(t, out, matcher.LibraryVersion)
	assert.Contains(t, out, "NETWORK_ID")
	assert.Contains(t, out, "mac-address-like")
	assert.NotContains(t, out, "\x1b[")
}

func TestShowCheckHelp(t *testing.T) {
	var buf bytes.Buffer
	h := NewSystem(&buf, true)
	assert.True(t, h.ShowCheckHelp("network_id"))
	assert.Contains(t, buf.String(), "port-like")
	assert.Contains(t, buf.String(), "network_identifiers")

	buf.Reset()
	assert.False(t, h.ShowCheckHelp("SSN"))
	assert.Contains(t, buf.String(), "not found")
}
