package main

import (
	"time"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/jobs"
	"github.com/liamcoop/courtextract/patterns"
)

// API request and response models

// ExtractRequest is the body of POST /api/v1/extract
type ExtractRequest struct {
	Jurisdiction string           `json:"jurisdiction" example:"orange"`
	DocumentType string           `json:"document_type" example:"complaint"`
	DateFrom     *extraction.Date `json:"date_from,omitempty" example:"2024-01-01"`
	DateTo       *extraction.Date `json:"date_to,omitempty" example:"2024-12-31"`
	DocumentPath string           `json:"document_path,omitempty" example:"orange/2024/complaint_1.pdf"`
	CaseID       string           `json:"case_id,omitempty" example:"30-2024-01234567"`
} // @name ExtractRequest

func (r ExtractRequest) toJobRequest() jobs.Request {
	return jobs.Request{
		Jurisdiction: r.Jurisdiction,
		DocumentType: r.DocumentType,
		DateFrom:     r.DateFrom,
		DateTo:       r.DateTo,
		DocumentPath: r.DocumentPath,
		CaseID:       r.CaseID,
	}
}

// ExtractResponse acknowledges an accepted job
type ExtractResponse struct {
	JobID        string `json:"job_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Status       string `json:"status" example:"queued"`
	Jurisdiction string `json:"jurisdiction" example:"orange"`
	DocumentType string `json:"document_type" example:"complaint"`
} // @name ExtractResponse

// JobResponse is the status view of one job
type JobResponse struct {
	JobID        string             `json:"job_id"`
	Status       string             `json:"status" example:"completed"`
	Jurisdiction string             `json:"jurisdiction"`
	DocumentType string             `json:"document_type"`
	DocumentPath string             `json:"document_path,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Result       *JobResultResponse `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
} // @name JobResponse

// JobResultResponse summarizes a terminal job. ResolvedFields, Sync and
// Summary are set when the job processed exactly one document.
type JobResultResponse struct {
	ResolvedFields map[string]*extraction.Date `json:"resolved_fields,omitempty"`
	Sync           *SyncResponse               `json:"sync,omitempty"`
	Summary        string                      `json:"summary,omitempty"`
	Processed      int                         `json:"documents_processed"`
	Documents      []DocumentResponse          `json:"documents"`
} // @name JobResultResponse

// SyncResponse reports the per-store outcome of one document
type SyncResponse struct {
	BatchStoreUpdated   bool   `json:"batch_store_updated"`
	DisplayStoreUpdated bool   `json:"display_store_updated"`
	BatchStoreError     string `json:"batch_store_error,omitempty"`
	DisplayStoreError   string `json:"display_store_error,omitempty"`
} // @name SyncResponse

// DocumentResponse is the outcome for one document of a job
type DocumentResponse struct {
	DocumentPath string                           `json:"document_path"`
	CaseID       string                           `json:"case_id,omitempty"`
	Fields       map[string]extraction.Resolution `json:"fields,omitempty"`
	Emails       []string                         `json:"emails,omitempty"`
	Sync         *SyncResponse                    `json:"sync,omitempty"`
	Summary      string                           `json:"summary,omitempty"`
	Error        string                           `json:"error,omitempty"`
} // @name DocumentResponse

// JobsListResponse lists jobs newest first
type JobsListResponse struct {
	Jobs      []JobResponse `json:"jobs"`
	TotalJobs int           `json:"total_jobs"`
} // @name JobsListResponse

// JurisdictionsResponse lists configured and compiled jurisdictions
type JurisdictionsResponse struct {
	Jurisdictions []string `json:"jurisdictions"`
	Loaded        []string `json:"loaded"`
} // @name JurisdictionsResponse

// ReloadResponse reports a successful rule reload
type ReloadResponse struct {
	Jurisdiction string `json:"jurisdiction" example:"orange"`
	Status       string `json:"status" example:"reloaded"`
} // @name ReloadResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status             string `json:"status" example:"healthy"`
	JurisdictionsReady int    `json:"jurisdictions_loaded"`
} // @name HealthResponse

func newJobResponse(j jobs.Job) JobResponse {
	resp := JobResponse{
		JobID:        j.ID,
		Status:       string(j.Status),
		Jurisdiction: j.Request.Jurisdiction,
		DocumentType: j.Request.DocumentType,
		DocumentPath: j.Request.DocumentPath,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		Error:        j.Error,
	}
	if j.Result != nil {
		resp.Result = newJobResultResponse(j.Result)
	}
	return resp
}

func newJobResultResponse(r *jobs.Result) *JobResultResponse {
	out := &JobResultResponse{
		Processed: r.Processed(),
		Documents: make([]DocumentResponse, 0, len(r.Documents)),
	}
	for _, d := range r.Documents {
		out.Documents = append(out.Documents, newDocumentResponse(d))
	}

	if len(r.Documents) == 1 && r.Documents[0].Succeeded() {
		d := r.Documents[0]
		out.ResolvedFields = map[string]*extraction.Date{
			patterns.FieldIncidentDate:    d.Result.Value(patterns.FieldIncidentDate),
			patterns.FieldIncidentEndDate: d.Result.Value(patterns.FieldIncidentEndDate),
		}
		out.Sync = out.Documents[0].Sync
		out.Summary = out.Documents[0].Summary
	}
	return out
}

func newDocumentResponse(d jobs.DocumentOutcome) DocumentResponse {
	resp := DocumentResponse{DocumentPath: d.DocumentPath, CaseID: d.CaseID}
	if d.Err != nil {
		resp.Error = d.Err.Error()
		return resp
	}
	if d.Result != nil {
		resp.Fields = d.Result.Fields
		resp.Emails = d.Result.Emails
	}

	s := &SyncResponse{
		BatchStoreUpdated:   d.Sync.BatchUpdated,
		DisplayStoreUpdated: d.Sync.DisplayUpdated,
	}
	if d.Sync.BatchError != nil {
		s.BatchStoreError = d.Sync.BatchError.Error()
	}
	if d.Sync.DisplayError != nil {
		s.DisplayStoreError = d.Sync.DisplayError.Error()
	}
	resp.Sync = s
	resp.Summary = d.Sync.Summary()
	return resp
}
