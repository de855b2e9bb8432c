// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// StandardObserver implements observability for all components.
// It is safe for concurrent use by pool workers.
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode

	mu       sync.Mutex
	seq      atomic.Uint64
	counters map[string]*OperationStats
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// ParseLevel maps a flag value to a level.
func ParseLevel(s string) ObservabilityLevel {
	switch s {
	case "debug":
		return ObservabilityDebug
	case "metrics":
		return ObservabilityMetrics
	default:
		return ObservabilityOff
	}
}

// OperationStats aggregates the timings of one component operation.
type OperationStats struct {
	Component string `json:"component"`
	Operation string `json:"operation"`
	Count     int    `json:"count"`
	Failures  int    `json:"failures"`
	TotalMs   int64  `json:"total_ms"`
	MaxMs     int64  `json:"max_ms"`
}

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:    level,
		writer:   writer,
		counters: make(map[string]*OperationStats),
	}
}

// Level returns the configured level.
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StartTiming returns a function to complete timing. A nil observer is valid
// and records nothing.
func (o *StandardObserver) StartTiming(component, operation, target string) func(success bool, metadata map[string]interface{}) {
	if o == nil || o.level == ObservabilityOff {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Target:     target,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if errMsg, ok := metadata["error"].(string); ok {
			data.Error = errMsg
		}

		o.record(data)
		o.LogOperation(data)
	}
}

func (o *StandardObserver) record(data StandardObservabilityData) {
	key := data.Component + "/" + data.Operation
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.counters[key]
	if !ok {
		st = &OperationStats{Component: data.Component, Operation: data.Operation}
		o.counters[key] = st
	}
	st.Count++
	if !data.Success {
		st.Failures++
	}
	st.TotalMs += data.DurationMs
	if data.DurationMs > st.MaxMs {
		st.MaxMs = data.DurationMs
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	data.RequestID = "req-" + time.Now().Format("20060102-150405") + "-" + strconv.FormatUint(o.seq.Add(1), 10)

	// Only log JSON in debug mode
	if o.level == ObservabilityDebug {
		o.mu.Lock()
		json.NewEncoder(o.writer).Encode(data)
		o.mu.Unlock()
	}
}

// Stats returns the per-operation aggregates sorted by component then operation.
func (o *StandardObserver) Stats() []OperationStats {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OperationStats, 0, len(o.counters))
	for _, st := range o.counters {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// WriteSummary emits the aggregates as one JSON document when metrics are on.
func (o *StandardObserver) WriteSummary() {
	if o == nil || o.level == ObservabilityOff {
		return
	}
	stats := o.Stats()
	o.mu.Lock()
	defer o.mu.Unlock()
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]interface{}{"operations": stats})
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	Target     string                 `json:"target,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
