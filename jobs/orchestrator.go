package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/internal/logger"
	"github.com/liamcoop/courtextract/internal/metrics"
	"github.com/liamcoop/courtextract/storesync"
)

// Extractor is the part of extraction.Engine the orchestrator uses.
type Extractor interface {
	ExtractDocument(ctx context.Context, doc extraction.Document, fields ...string) (*extraction.Result, error)
}

// DocumentLoader returns the text of a document.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Syncer writes a result to the stores.
type Syncer interface {
	Apply(ctx context.Context, target storesync.Target, result *extraction.Result) storesync.Outcome
}

const (
	DefaultWorkers    = 4
	DefaultQueueSize  = 100
	DefaultJobTimeout = 10 * time.Minute
)

// Orchestrator accepts jobs, runs them on a bounded worker pool and keeps
// their status in memory. Jobs are lost on restart.
type Orchestrator struct {
	engine  Extractor
	loader  DocumentLoader
	syncer  Syncer
	catalog storesync.Catalog

	workers     int
	timeout     time.Duration
	extractedBy string
	now         func() time.Time

	queue   chan string
	mu      sync.RWMutex
	jobs    map[string]*Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize bounds the number of jobs waiting for a worker.
func WithQueueSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queue = make(chan string, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithExtractedBy sets the service name written to extracted_by. Every
// record carries it suffixed with the pathway that produced it.
func WithExtractedBy(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.extractedBy = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCatalog enables batch jobs, which discover documents by jurisdiction,
// type and filing date.
func WithCatalog(c storesync.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = c
	}
}

// New starts the worker pool. Call Shutdown to stop it.
func New(engine Extractor, loader DocumentLoader, syncer Syncer, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		engine:      engine,
		loader:      loader,
		syncer:      syncer,
		workers:     DefaultWorkers,
		timeout:     DefaultJobTimeout,
		extractedBy: storesync.DefaultExtractedBy,
		now:         time.Now,
		queue:       make(chan string, DefaultQueueSize),
		jobs:        make(map[string]*Job),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     metrics.New(),
	}
	for _, opt := range opts {
		opt(o)
	}

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

// Submit validates req, records a queued job and returns its id without
// waiting for any processing. ctx only bounds the submission itself; the job
// runs under the orchestrator's own context.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: o.now().UTC(),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", errors.New("orchestrator is shut down")
	}
	o.jobs[job.ID] = job
	// Hold the lock while enqueueing so Shutdown cannot close the pool
	// between the check above and the send.
	select {
	case o.queue <- job.ID:
	default:
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.run(job.ID)
		}()
	}
	o.mu.Unlock()

	o.metrics.JobsSubmitted.Inc()
	logger.Info("Job submitted",
		"job_id", job.ID,
		"jurisdiction", req.Jurisdiction,
		"document_type", req.DocumentType,
		"single", req.Single(),
	)
	return job.ID, nil
}

// Get returns a snapshot of a job.
func (o *Orchestrator) Get(id string) (Job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	job, ok := o.jobs[id]
	if !ok {
		return Job{}, &apperr.NotFoundError{Kind: "job", ID: id}
	}
	return *job, nil
}

// List returns snapshots of all jobs, newest first.
func (o *Orchestrator) List() []Job {
	o.mu.RLock()
	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, *j)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Purge drops terminal jobs that completed before now minus olderThan and
// returns how many were removed.
func (o *Orchestrator) Purge(olderThan time.Duration) int {
	cutoff := o.now().Add(-olderThan)

	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for id, j := range o.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(o.jobs, id)
			n++
		}
	}
	return n
}

// Shutdown stops accepting jobs and waits for running ones until ctx is done,
// after which in-flight jobs are cancelled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for id := range o.queue {
		o.run(id)
	}
}

// update replaces the job's snapshot with a modified copy.
func (o *Orchestrator) update(id string, fn func(j *Job)) Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur, ok := o.jobs[id]
	if !ok {
		return Job{}
	}
	next := *cur
	fn(&next)
	o.jobs[id] = &next
	return next
}

func (o *Orchestrator) run(id string) {
	started := o.now().UTC()
	job := o.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})
	if job.ID == "" {
		return
	}

	o.metrics.JobsRunning.Inc()
	defer o.metrics.JobsRunning.Dec()

	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	var (
		result *Result
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		result, err = o.process(ctx, job)
	}()

	finished := o.now().UTC()
	final := o.update(id, func(j *Job) {
		j.CompletedAt = &finished
		j.Result = result
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			return
		}
		j.Status = StatusCompleted
	})

	o.metrics.JobsFinished.WithLabelValues(string(final.Status)).Inc()
	if err != nil {
		logger.Error("Job failed", "job_id", id, "error", err)
		return
	}
	logger.Info("Job completed",
		"job_id", id,
		"documents", len(result.Documents),
		"processed", result.Processed(),
		"duration", finished.Sub(started),
	)
}

func (o *Orchestrator) process(ctx context.Context, job Job) (*Result, error) {
	if job.Request.Single() {
		doc := o.processDocument(ctx, job, storesync.CatalogDocument{
			CaseID:       job.Request.CaseID,
			DocumentPath: job.Request.DocumentPath,
		})
		result := &Result{Documents: []DocumentOutcome{doc}}
		if doc.Err != nil {
			return result, doc.Err
		}
		if doc.Sync.BothUnavailable() {
			return result, fmt.Errorf("no store could be updated: %s", doc.Sync.Summary())
		}
		return result, nil
	}
	return o.processBatch(ctx, job)
}

func (o *Orchestrator) processBatch(ctx context.Context, job Job) (*Result, error) {
	if o.catalog == nil {
		return nil, &apperr.ValidationError{Message: "document_path is required: no document catalog is configured"}
	}

	today := extraction.DateOf(o.now())
	from, to := job.Request.dateRange(today)
	docs, err := o.catalog.FindDocuments(ctx, storesync.CatalogQuery{
		Jurisdiction: job.Request.Jurisdiction,
		DocumentType: job.Request.DocumentType,
		From:         from,
		To:           to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	logger.Info("Discovered documents", "job_id", job.ID, "count", len(docs), "from", from, "to", to)

	result := &Result{Documents: make([]DocumentOutcome, 0, len(docs))}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("job interrupted after %d of %d documents: %w", len(result.Documents), len(docs), err)
		}
		out := o.processDocument(ctx, job, d)
		if out.Err != nil {
			if apperr.IsConfiguration(out.Err) {
				result.Documents = append(result.Documents, out)
				return result, out.Err
			}
			logger.Warn("Skipping document", "job_id", job.ID, "document_path", d.DocumentPath, "error", out.Err)
		}
		result.Documents = append(result.Documents, out)
	}

	if len(docs) > 0 && result.Processed() == 0 {
		return result, fmt.Errorf("none of %d documents could be extracted", len(docs))
	}
	return result, nil
}

func (o *Orchestrator) processDocument(ctx context.Context, job Job, d storesync.CatalogDocument) DocumentOutcome {
	out := DocumentOutcome{DocumentPath: d.DocumentPath, CaseID: d.CaseID}

	text, err := o.loader.Load(ctx, d.DocumentPath)
	if err != nil {
		out.Err = err
		return out
	}

	res, err := o.engine.ExtractDocument(ctx, extraction.Document{
		ID:           d.DocumentPath,
		Jurisdiction: job.Request.Jurisdiction,
		Text:         text,
		Metadata: extraction.Metadata{
			CaseID:       d.CaseID,
			DocumentType: job.Request.DocumentType,
			FilingDate:   d.FiledDate,
		},
	})
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res

	out.Sync = o.syncer.Apply(ctx, storesync.Target{
		JobID:        job.ID,
		CaseID:       d.CaseID,
		DocumentPath: d.DocumentPath,
		Jurisdiction: job.Request.Jurisdiction,
		ExtractedBy:  o.extractedByFor(job.Request),
	}, res)
	return out
}

// extractedByFor tags extracted_by with the pathway, so single-document
// corrections can be told apart from batch runs.
func (o *Orchestrator) extractedByFor(req Request) string {
	if req.Single() {
		return o.extractedBy + "/single"
	}
	return o.extractedBy + "/batch"
}
