// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakaudit/internal/span"
	"leakaudit/internal/taxonomy"
)

func TestStub_ScriptAndDefault(t *testing.T) {
	stub := NewStub().
		On("a", taxonomy.Credentials, taxonomy.None).
		OnClaims("b", Claim{Category: taxonomy.PII, Evidence: "Jane Doe"}).
		Default(taxonomy.PeerReview)

	op, err := stub.Extract(context.Background(), span.Span{Text: "a"})
	require.NoError(t, err)
	assert.True(t, op.Categories().Equal(taxonomy.NewSet(taxonomy.Credentials)))
	assert.Equal(t, ContractVersion, op.ContractVersion)

	op, err = stub.Extract(context.Background(), span.Span{Text: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, op.Evidence(taxonomy.PII))
	assert.True(t, op.Names(taxonomy.PII))

	op, err = stub.Extract(context.Background(), span.Span{Text: "unscripted"})
	require.NoError(t, err)
	assert.True(t, op.Names(taxonomy.PeerReview))
	assert.Equal(t, 1, stub.Calls("a"))
}

func TestStub_QueuedFailures(t *testing.T) {
	boom := errors.New("boom")
	stub := NewStub().On("x", taxonomy.PII).FailWith("x", ErrTransientUnavailable, boom)

	_, err := stub.Extract(context.Background(), span.Span{Text: "x"})
	assert.ErrorIs(t, err, ErrTransientUnavailable)
	_, err = stub.Extract(context.Background(), span.Span{Text: "x"})
	assert.ErrorIs(t, err, boom)
	op, err := stub.Extract(context.Background(), span.Span{Text: "x"})
	require.NoError(t, err)
	assert.True(t, op.Names(taxonomy.PII))
	assert.Equal(t, 3, stub.Calls("x"))
}

func TestStub_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStub().Extract(ctx, span.Span{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindMalformedResponse, KindOf(ErrMalformedResponse))
	assert.Equal(t, KindTransientUnavailable, KindOf(ErrTransientUnavailable))
	assert.Equal(t, KindTransientUnavailable, KindOf(errors.New("dial tcp: refused")))
}
