package storesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/patterns"
)

func testResult(t *testing.T) *extraction.Result {
	t.Helper()
	d, _ := extraction.NewDate(2024, time.March, 1)
	return &extraction.Result{
		DocumentID:   "orange/2024/complaint_1.pdf",
		Jurisdiction: "orange",
		Fields: map[string]extraction.Resolution{
			patterns.FieldIncidentDate:    {Field: patterns.FieldIncidentDate, Status: extraction.StatusFound, Value: &d},
			patterns.FieldIncidentEndDate: {Field: patterns.FieldIncidentEndDate, Status: extraction.StatusNotFound},
		},
		Emails:      []string{"jane@firm.com"},
		ExtractedAt: time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC),
	}
}

func seededDisplay(t *testing.T) *MemoryDisplayStore {
	t.Helper()
	docs, err := ParseDocuments([]byte(caseDocuments))
	if err != nil {
		t.Fatalf("ParseDocuments() failed: %v", err)
	}
	display := NewMemoryDisplayStore()
	filed, _ := extraction.NewDate(2024, time.March, 5)
	if err := display.PutCase(Case{ID: "case-1", CourtName: "Orange", FiledAt: filed, Documents: docs}); err != nil {
		t.Fatalf("PutCase() failed: %v", err)
	}
	return display
}

func target(path string) Target {
	return Target{JobID: "job-1", CaseID: "case-1", DocumentPath: path, ExtractedBy: "courtextract"}
}

func TestApply_BothStores(t *testing.T) {
	batch := NewMemoryBatchStore()
	display := seededDisplay(t)
	s := NewSynchronizer(batch, display)

	out := s.Apply(context.Background(), target("orange/2024/complaint_1.pdf"), testResult(t))

	if !out.BatchUpdated || !out.DisplayUpdated {
		t.Fatalf("expected both stores updated, got %+v", out)
	}
	if out.Summary() != "both" {
		t.Errorf("Summary() = %q", out.Summary())
	}

	rec, ok := batch.Get("job-1", "orange/2024/complaint_1.pdf")
	if !ok {
		t.Fatal("batch row missing")
	}
	if rec.IncidentDate == nil || rec.IncidentDate.String() != "2024-03-01" || rec.IncidentEndDate != nil {
		t.Errorf("batch row dates = %v / %v", rec.IncidentDate, rec.IncidentEndDate)
	}
	if rec.Jurisdiction != "orange" {
		t.Errorf("batch row jurisdiction = %q", rec.Jurisdiction)
	}

	docs, _ := display.Documents("case-1")
	entry := docs[docs.Find("orange/2024/complaint_1.pdf")]
	if entry.String("incident_date") != "2024-03-01" {
		t.Errorf("display incident_date = %q", entry.String("incident_date"))
	}
}

func TestApply_DisplayDocumentMissingStillUpdatesBatch(t *testing.T) {
	batch := NewMemoryBatchStore()
	display := seededDisplay(t)
	s := NewSynchronizer(batch, display)

	out := s.Apply(context.Background(), target("orange/2024/other.pdf"), testResult(t))

	if !out.BatchUpdated || out.BatchError != nil {
		t.Errorf("batch store should be updated, got %+v", out)
	}
	if out.DisplayUpdated {
		t.Error("display store must not report an update")
	}
	if !apperr.IsDocumentNotFound(out.DisplayError) {
		t.Errorf("expected DocumentNotFoundError, got %v", out.DisplayError)
	}
	if out.Summary() != "batch only" {
		t.Errorf("Summary() = %q", out.Summary())
	}
}

func TestApply_BatchUnavailableStillUpdatesDisplay(t *testing.T) {
	batch := NewMemoryBatchStore()
	batch.FailWith(&apperr.StoreUnavailableError{Store: BatchStoreName, Cause: errors.New("connection refused")})
	display := seededDisplay(t)
	s := NewSynchronizer(batch, display)

	out := s.Apply(context.Background(), target("orange/2024/complaint_1.pdf"), testResult(t))

	if !out.DisplayUpdated {
		t.Errorf("display store should be updated, got %+v", out)
	}
	if out.BatchUpdated || !apperr.IsStoreUnavailable(out.BatchError) {
		t.Errorf("expected batch StoreUnavailableError, got %v", out.BatchError)
	}
	if out.Summary() != "display only" || out.BothUnavailable() {
		t.Errorf("Summary() = %q, BothUnavailable() = %v", out.Summary(), out.BothUnavailable())
	}
}

func TestApply_NoStoresConfigured(t *testing.T) {
	out := NewSynchronizer(nil, nil).Apply(context.Background(), target("a.pdf"), testResult(t))

	if out.Summary() != "neither" {
		t.Errorf("Summary() = %q", out.Summary())
	}
	if !out.BothUnavailable() {
		t.Errorf("expected both stores unavailable, got %+v", out)
	}
}

func TestApply_MalformedTargetWritesNothing(t *testing.T) {
	batch := NewMemoryBatchStore()
	s := NewSynchronizer(batch, seededDisplay(t))

	tests := []struct {
		name   string
		target Target
		result *extraction.Result
	}{
		{"nil result", target("orange/2024/complaint_1.pdf"), nil},
		{"no path", target(" "), testResult(t)},
		{"no job", Target{DocumentPath: "orange/2024/complaint_1.pdf"}, testResult(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Apply(context.Background(), tt.target, tt.result)
			if !apperr.IsValidation(out.BatchError) || !apperr.IsValidation(out.DisplayError) {
				t.Errorf("expected ValidationError for both stores, got %+v", out)
			}
			if out.BatchUpdated || out.DisplayUpdated {
				t.Error("nothing should be written")
			}
		})
	}
	if batch.Len() != 0 {
		t.Errorf("batch store has %d rows, want 0", batch.Len())
	}
}

func TestApply_LocatesCaseByPath(t *testing.T) {
	display := seededDisplay(t)
	s := NewSynchronizer(NewMemoryBatchStore(), display)

	tgt := target("orange/2024/summons_1.pdf")
	tgt.CaseID = ""
	out := s.Apply(context.Background(), tgt, testResult(t))
	if !out.DisplayUpdated {
		t.Fatalf("expected case lookup by document path, got %v", out.DisplayError)
	}
}

// blockingBatch holds Upsert until released so the test can observe that
// the display write is not serialized behind it.
type blockingBatch struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBatch) Upsert(ctx context.Context, _ Record) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type signallingDisplay struct {
	done chan struct{}
}

func (d *signallingDisplay) ApplyToDocument(context.Context, Record) error {
	close(d.done)
	return nil
}

func TestApply_WritesRunConcurrently(t *testing.T) {
	batch := &blockingBatch{started: make(chan struct{}), release: make(chan struct{})}
	display := &signallingDisplay{done: make(chan struct{})}
	s := NewSynchronizer(batch, display)

	var (
		wg  sync.WaitGroup
		out Outcome
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		out = s.Apply(context.Background(), target("a.pdf"), testResult(t))
	}()

	<-batch.started
	select {
	case <-display.done:
	case <-time.After(5 * time.Second):
		t.Fatal("display write waited for the batch write")
	}
	close(batch.release)
	wg.Wait()

	if out.Summary() != "both" {
		t.Errorf("Summary() = %q", out.Summary())
	}
}
