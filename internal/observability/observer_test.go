// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTiming_DebugWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)

	finish := o.StartTiming("matcher", "match", "main.tex")
	finish(true, map[string]interface{}{"matches": 2})

	var data StandardObservabilityData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "matcher", data.Component)
	assert.Equal(t, "main.tex", data.Target)
	assert.True(t, data.Success)
	assert.True(t, strings.HasPrefix(data.RequestID, "req-"))
}

func TestStartTiming_MetricsAggregatesSilently(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityMetrics, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.StartTiming("extractor", "extract", "")(i%4 != 0, nil)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, buf.String())
	stats := o.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 20, stats[0].Count)
	assert.Equal(t, 5, stats[0].Failures)
}

func TestNilObserverIsInert(t *testing.T) {
	var o *StandardObserver
	assert.NotPanics(t, func() {
		o.StartTiming("a", "b", "c")(true, nil)
		o.WriteSummary()
	})
	assert.Equal(t, ObservabilityOff, o.Level())
}

func TestDebugObserverSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf)
	done := d.StartStep("pool", "document", "2401.00001")
	d.LogDetail("pool", "3 spans")
	d.LogMetric("pool", "workers", 4)
	done(true, "committed")

	out := buf.String()
	assert.Contains(t, out, "pool: document (2401.00001)")
	assert.Contains(t, out, "  → pool: 3 spans")
	assert.Contains(t, out, "workers = 4")
	assert.Contains(t, out, "completed")
	assert.Same(t, d, d.StandardObserver.DebugObserver)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, ObservabilityDebug, ParseLevel("debug"))
	assert.Equal(t, ObservabilityMetrics, ParseLevel("metrics"))
	assert.Equal(t, ObservabilityOff, ParseLevel(""))
}
