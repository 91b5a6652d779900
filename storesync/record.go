package storesync

import (
	"strings"
	"time"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/patterns"
)

const timestampLayout = time.RFC3339

// DefaultExtractedBy identifies this service in extracted_by when the
// caller supplies nothing.
const DefaultExtractedBy = "courtextract"

// Target identifies where a result is written.
type Target struct {
	JobID        string
	CaseID       string
	DocumentPath string
	Jurisdiction string
	ExtractedBy  string
}

// Record is the store-neutral projection of one result for one document.
type Record struct {
	JobID               string
	CaseID              string
	DocumentPath        string
	Jurisdiction        string
	IncidentDate        *extraction.Date
	IncidentEndDate     *extraction.Date
	Emails              []string
	ExtractionTimestamp time.Time
	ExtractedBy         string
	UpdatedAt           time.Time
}

// NewRecord projects result onto target. It fails with a ValidationError
// when the pair cannot be written anywhere.
func NewRecord(target Target, result *extraction.Result, now time.Time) (Record, error) {
	if result == nil {
		return Record{}, &apperr.ValidationError{Message: "extraction result is missing"}
	}
	path := strings.TrimSpace(target.DocumentPath)
	if path == "" {
		return Record{}, &apperr.ValidationError{Message: "document path is required"}
	}
	if strings.TrimSpace(target.JobID) == "" {
		return Record{}, &apperr.ValidationError{Message: "job id is required"}
	}

	extractedBy := target.ExtractedBy
	if extractedBy == "" {
		extractedBy = DefaultExtractedBy
	}
	jurisdiction := target.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = result.Jurisdiction
	}

	return Record{
		JobID:               target.JobID,
		CaseID:              strings.TrimSpace(target.CaseID),
		DocumentPath:        path,
		Jurisdiction:        jurisdiction,
		IncidentDate:        result.Value(patterns.FieldIncidentDate),
		IncidentEndDate:     result.Value(patterns.FieldIncidentEndDate),
		Emails:              append([]string(nil), result.Emails...),
		ExtractionTimestamp: result.ExtractedAt,
		ExtractedBy:         extractedBy,
		UpdatedAt:           now.UTC(),
	}, nil
}

func (r Record) incidentDateString() *string    { return dateString(r.IncidentDate) }
func (r Record) incidentEndDateString() *string { return dateString(r.IncidentEndDate) }

func (r Record) emails() []string {
	if r.Emails == nil {
		return []string{}
	}
	return r.Emails
}

func dateString(d *extraction.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func dateTime(d *extraction.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}
