// Package storesync writes extraction results to the batch store and the
// display store. The two stores fail independently and every Apply reports
// the state of each one separately.
package storesync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/internal/logger"
	"github.com/liamcoop/courtextract/internal/metrics"
)

// Store names used in errors, logs and metrics.
const (
	BatchStoreName   = "batch_store"
	DisplayStoreName = "display_store"
)

// BatchStore keeps one row per job and document for the batch pipeline.
type BatchStore interface {
	Upsert(ctx context.Context, rec Record) error
}

// DisplayStore updates the document entry shown to users. It returns a
// DocumentNotFoundError when the case has no entry with the record's path.
type DisplayStore interface {
	ApplyToDocument(ctx context.Context, rec Record) error
}

// Outcome is the per-store result of one Apply.
type Outcome struct {
	BatchUpdated   bool
	DisplayUpdated bool
	BatchError     error
	DisplayError   error
	AppliedAt      time.Time
}

// Summary names the stores that were updated.
func (o Outcome) Summary() string {
	switch {
	case o.BatchUpdated && o.DisplayUpdated:
		return "both"
	case o.BatchUpdated:
		return "batch only"
	case o.DisplayUpdated:
		return "display only"
	default:
		return "neither"
	}
}

// BothUnavailable reports whether neither store could be reached at all.
func (o Outcome) BothUnavailable() bool {
	return apperr.IsStoreUnavailable(o.BatchError) && apperr.IsStoreUnavailable(o.DisplayError)
}

// Synchronizer applies results to both stores. A nil store counts as
// unavailable.
type Synchronizer struct {
	batch   BatchStore
	display DisplayStore
	now     func() time.Time
	metrics *metrics.Metrics
}

func NewSynchronizer(batch BatchStore, display DisplayStore) *Synchronizer {
	return &Synchronizer{
		batch:   batch,
		display: display,
		now:     time.Now,
		metrics: metrics.New(),
	}
}

// Apply writes result to both stores concurrently and waits for both. It is
// never retried here; a malformed target fails both stores without writing.
func (s *Synchronizer) Apply(ctx context.Context, target Target, result *extraction.Result) Outcome {
	now := s.now()
	out := Outcome{AppliedAt: now.UTC()}

	rec, err := NewRecord(target, result, now)
	if err != nil {
		out.BatchError = err
		out.DisplayError = err
		return out
	}

	var g errgroup.Group

	g.Go(func() error {
		out.BatchError = s.writeBatch(ctx, rec)
		out.BatchUpdated = out.BatchError == nil
		return nil
	})
	g.Go(func() error {
		out.DisplayError = s.writeDisplay(ctx, rec)
		out.DisplayUpdated = out.DisplayError == nil
		return nil
	})
	_ = g.Wait()

	logger.Info("Synchronized extraction result",
		"job_id", rec.JobID,
		"document_path", rec.DocumentPath,
		"summary", out.Summary(),
	)
	return out
}

func (s *Synchronizer) writeBatch(ctx context.Context, rec Record) error {
	if s.batch == nil {
		err := &apperr.StoreUnavailableError{Store: BatchStoreName, Cause: errors.New("not configured")}
		s.record(BatchStoreName, rec, err)
		return err
	}
	err := s.batch.Upsert(ctx, rec)
	s.record(BatchStoreName, rec, err)
	return err
}

func (s *Synchronizer) writeDisplay(ctx context.Context, rec Record) error {
	if s.display == nil {
		err := &apperr.StoreUnavailableError{Store: DisplayStoreName, Cause: errors.New("not configured")}
		s.record(DisplayStoreName, rec, err)
		return err
	}
	err := s.display.ApplyToDocument(ctx, rec)
	s.record(DisplayStoreName, rec, err)
	return err
}

func (s *Synchronizer) record(store string, rec Record, err error) {
	result := "updated"
	switch {
	case err == nil:
	case apperr.IsDocumentNotFound(err):
		result = "not_found"
	case apperr.IsStoreUnavailable(err):
		result = "unavailable"
	default:
		result = "error"
	}
	s.metrics.SyncWrites.WithLabelValues(store, result).Inc()

	if err != nil {
		logger.Warn("Store write failed",
			"store", store,
			"job_id", rec.JobID,
			"case_id", rec.CaseID,
			"document_path", rec.DocumentPath,
			"error", err,
		)
	}
}
