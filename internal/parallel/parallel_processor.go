// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
	"leakaudit/internal/verdict"
)

// Sink receives records per document. Records added between Begin and
// Commit become visible only on Commit; Discard drops them.
type Sink interface {
	Begin(documentID string)
	Add(documentID string, rec verdict.Record)
	Commit(documentID string)
	Discard(documentID string)
}

// ParallelProcessor fans spans out to a worker pool and commits each
// document to a Sink once all of its spans are analyzed.
type ParallelProcessor struct {
	analyzer        Analyzer
	workers         int
	documentTimeout time.Duration
	observer        *observability.StandardObserver

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalDocuments     int           `json:"total_documents"`
	CommittedDocuments int           `json:"committed_documents"`
	DiscardedDocuments int           `json:"discarded_documents"`
	TotalSpans         int           `json:"total_spans"`
	AnalyzedSpans      int           `json:"analyzed_spans"`
	FlaggedSpans       int           `json:"flagged_spans"`
	TotalDuration      time.Duration `json:"total_duration_ms"`
	WorkerCount        int           `json:"worker_count"`
	AvgSpanTime        time.Duration `json:"avg_span_time_ms"`
}

// ProgressCallback is called when a document is committed or discarded.
type ProgressCallback func(completed, total int, documentID string, committed bool)

// NewParallelProcessor creates a processor with the given pool size. A
// documentTimeout of zero leaves documents unbounded.
func NewParallelProcessor(analyzer Analyzer, workers int, documentTimeout time.Duration, observer *observability.StandardObserver) *ParallelProcessor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ParallelProcessor{
		analyzer:        analyzer,
		workers:         workers,
		documentTimeout: documentTimeout,
		observer:        observer,
		cancels:         make(map[string]context.CancelFunc),
	}
}

// CancelDocument cancels every in-flight analysis of documentID. Its records
// are discarded. It reports whether the document was in flight.
func (pp *ParallelProcessor) CancelDocument(documentID string) bool {
	pp.mu.Lock()
	cancel, ok := pp.cancels[documentID]
	pp.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// documentState collects the results of one document.
type documentState struct {
	ctx     context.Context
	pending int
	failed  error
	records []verdict.Record
}

// ProcessSpans analyzes spans and delivers them to sink, document by
// document. Cancelling ctx discards every document not yet committed.
func (pp *ParallelProcessor) ProcessSpans(ctx context.Context, spans []span.Span, sink Sink, progress ProgressCallback) (*ProcessingStats, error) {
	if sink == nil {
		return nil, fmt.Errorf("no sink configured")
	}
	start := time.Now()
	finishTiming := pp.observer.StartTiming("parallel_processor", "process_spans", "batch")

	order, groups := span.GroupByDocument(spans)
	docs := make(map[string]*documentState, len(order))
	for _, id := range order {
		docCtx, cancel := pp.documentContext(ctx)
		pp.mu.Lock()
		pp.cancels[id] = cancel
		pp.mu.Unlock()
		docs[id] = &documentState{ctx: docCtx, pending: len(groups[id])}
		sink.Begin(id)
	}

	pool := NewWorkerPool(pp.workers, pp.analyzer, pp.observer)
	pool.Start()
	go func() {
		defer pool.Close()
		n := 0
		for _, id := range order {
			for _, s := range groups[id] {
				pool.Submit(&Job{JobID: fmt.Sprintf("span_%d", n), Span: s, Ctx: docs[id].ctx})
				n++
			}
		}
	}()
	go pool.Wait()

	stats := &ProcessingStats{
		TotalDocuments: len(order),
		TotalSpans:     len(spans),
		WorkerCount:    pool.Workers(),
	}
	var spanTime time.Duration
	completed := 0

	for result := range pool.Results() {
		doc := docs[result.DocumentID]
		doc.pending--
		spanTime += result.Duration

		if result.Error != nil {
			if doc.failed == nil {
				doc.failed = result.Error
			}
		} else {
			stats.AnalyzedSpans++
			doc.records = append(doc.records, result.Record)
		}

		if doc.pending > 0 {
			continue
		}

		committed := pp.finishDocument(result.DocumentID, doc, sink)
		completed++
		if committed {
			stats.CommittedDocuments++
			for _, rec := range doc.records {
				if rec.Flagged() {
					stats.FlaggedSpans++
				}
			}
		} else {
			stats.DiscardedDocuments++
		}
		doc.records = nil
		if progress != nil {
			progress(completed, len(order), result.DocumentID, committed)
		}
	}

	stats.TotalDuration = time.Since(start)
	stats.AvgSpanTime = spanTime / time.Duration(max(stats.TotalSpans, 1))

	finishTiming(true, map[string]interface{}{
		"total_documents":     stats.TotalDocuments,
		"committed_documents": stats.CommittedDocuments,
		"discarded_documents": stats.DiscardedDocuments,
		"total_spans":         stats.TotalSpans,
		"worker_count":        stats.WorkerCount,
		"duration_ms":         stats.TotalDuration.Milliseconds(),
	})

	return stats, ctx.Err()
}

func (pp *ParallelProcessor) documentContext(parent context.Context) (context.Context, context.CancelFunc) {
	if pp.documentTimeout > 0 {
		return context.WithTimeout(parent, pp.documentTimeout)
	}
	return context.WithCancel(parent)
}

// finishDocument commits doc when every span succeeded and its context is
// still live, and discards it otherwise.
func (pp *ParallelProcessor) finishDocument(id string, doc *documentState, sink Sink) bool {
	pp.mu.Lock()
	cancel := pp.cancels[id]
	delete(pp.cancels, id)
	pp.mu.Unlock()

	err := doc.failed
	if err == nil {
		err = doc.ctx.Err()
	}
	if cancel != nil {
		cancel()
	}

	if err != nil {
		sink.Discard(id)
		pp.observer.LogOperation(observability.StandardObservabilityData{
			Component: "parallel_processor",
			Operation: "discard_document",
			Target:    id,
			Success:   false,
			Error:     err.Error(),
			Metadata:  map[string]interface{}{"spans": len(doc.records)},
		})
		return false
	}

	for _, rec := range doc.records {
		sink.Add(id, rec)
	}
	sink.Commit(id)
	pp.observer.LogOperation(observability.StandardObservabilityData{
		Component: "parallel_processor",
		Operation: "commit_document",
		Target:    id,
		Success:   true,
		Metadata:  map[string]interface{}{"spans": len(doc.records)},
	})
	return true
}
