// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"sync"
	"time"

	"leakaudit/internal/observability"
	"leakaudit/internal/span"
	"leakaudit/internal/verdict"
)

// DefaultWorkers is the pool size used when none is configured. Span
// analysis spends almost all of its time waiting on the extractor, so the
// pool is sized for outstanding requests rather than CPU cores.
const DefaultWorkers = 50

// Analyzer turns one span into its output record. An error means the record
// must not be kept.
type Analyzer interface {
	AnalyzeSpan(ctx context.Context, s span.Span) (verdict.Record, error)
}

// WorkerPool analyzes spans on a fixed number of goroutines.
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	analyzer Analyzer
	observer *observability.StandardObserver
}

// Job is one span to analyze under its document's context.
type Job struct {
	JobID string
	Span  span.Span
	Ctx   context.Context
}

// Result is the outcome of a Job. Every submitted job yields exactly one
// result, including jobs whose context was already cancelled.
type Result struct {
	JobID      string
	DocumentID string
	Record     verdict.Record
	Error      error
	Duration   time.Duration
}

// NewWorkerPool creates a pool of the given size.
func NewWorkerPool(workers int, analyzer Analyzer, observer *observability.StandardObserver) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		analyzer: analyzer,
		observer: observer,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int { return wp.workers }

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close stops accepting jobs. Workers drain the queue and exit.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Wait blocks until every worker has exited, then closes the results channel.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

// Submit adds a job to the queue, blocking while it is full.
func (wp *WorkerPool) Submit(job *Job) {
	wp.jobs <- job
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		wp.results <- wp.processJob(job, id)
	}
}

func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()
	finishTiming := wp.observer.StartTiming("worker_pool", "analyze_span", job.Span.FilePath)

	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		rec verdict.Record
		err error
	)
	if err = ctx.Err(); err == nil {
		rec, err = wp.analyzer.AnalyzeSpan(ctx, job.Span)
	}

	duration := time.Since(start)
	meta := map[string]interface{}{
		"worker_id":   workerID,
		"document_id": job.Span.DocumentID,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
	} else {
		meta["categories"] = rec.Categories
	}
	finishTiming(err == nil, meta)

	return &Result{
		JobID:      job.JobID,
		DocumentID: job.Span.DocumentID,
		Record:     rec,
		Error:      err,
		Duration:   duration,
	}
}
