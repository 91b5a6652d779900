// Package jobs runs extraction requests asynchronously and tracks their
// status for the lifetime of the process.
package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/patterns"
	"github.com/liamcoop/courtextract/storesync"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request describes one extraction job. With DocumentPath set it processes
// that document; otherwise documents are discovered from the catalog.
type Request struct {
	Jurisdiction string           `json:"jurisdiction" validate:"required,max=100"`
	DocumentType string           `json:"document_type" validate:"required,max=100"`
	DateFrom     *extraction.Date `json:"date_from,omitempty"`
	DateTo       *extraction.Date `json:"date_to,omitempty"`
	DocumentPath string           `json:"document_path,omitempty" validate:"omitempty,max=1024"`
	CaseID       string           `json:"case_id,omitempty" validate:"omitempty,max=100"`
}

var validate = validator.New()

// Normalize trims the request and lowercases jurisdiction and document type.
func (r Request) Normalize() Request {
	r.Jurisdiction = patterns.NormalizeJurisdiction(r.Jurisdiction)
	r.DocumentType = strings.ToLower(strings.TrimSpace(r.DocumentType))
	r.DocumentPath = strings.TrimSpace(r.DocumentPath)
	r.CaseID = strings.TrimSpace(r.CaseID)
	return r
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &apperr.ValidationError{Message: fmt.Sprintf("%s failed %q", jsonName(fe.Field()), fe.Tag())}
		}
		return &apperr.ValidationError{Message: "invalid request", Cause: err}
	}
	if r.DateFrom != nil && r.DateTo != nil && r.DateFrom.After(*r.DateTo) {
		return &apperr.ValidationError{Message: "date_from must be before date_to"}
	}
	return nil
}

// Single reports whether the request names one document.
func (r Request) Single() bool {
	return r.DocumentPath != ""
}

// dateRange resolves the batch discovery window: date_to defaults to today
// and date_from to one year before date_to.
func (r Request) dateRange(today extraction.Date) (extraction.Date, extraction.Date) {
	to := today
	if r.DateTo != nil {
		to = *r.DateTo
	}
	from := extraction.DateOf(to.Time().AddDate(-1, 0, 0))
	if r.DateFrom != nil {
		from = *r.DateFrom
	}
	return from, to
}

func jsonName(field string) string {
	switch field {
	case "Jurisdiction":
		return "jurisdiction"
	case "DocumentType":
		return "document_type"
	case "DocumentPath":
		return "document_path"
	case "CaseID":
		return "case_id"
	}
	return field
}

// DocumentOutcome is the result of processing one document.
type DocumentOutcome struct {
	DocumentPath string
	CaseID       string
	Result       *extraction.Result
	Sync         storesync.Outcome
	// Err is set when the document could not be extracted; Sync is then empty.
	Err error
}

// Succeeded reports whether the document was extracted and reached at
// least one store attempt.
func (d DocumentOutcome) Succeeded() bool {
	return d.Err == nil && d.Result != nil
}

// Result is the terminal payload of a job.
type Result struct {
	Documents []DocumentOutcome
}

// Processed counts documents that were extracted.
func (r *Result) Processed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Succeeded() {
			n++
		}
	}
	return n
}

// Job is an immutable snapshot. The orchestrator replaces a job's snapshot
// on every transition and never modifies one that has been handed out.
type Job struct {
	ID          string
	Request     Request
	Status      Status
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Result      *Result
	Error       string
}
