package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/internal/logger"
	"github.com/liamcoop/courtextract/jobs"
)

type Server struct {
	orchestrator *jobs.Orchestrator
	engine       *extraction.Engine
	router       *chi.Mux
}

func NewServer(orchestrator *jobs.Orchestrator, engine *extraction.Engine) *Server {
	s := &Server{
		orchestrator: orchestrator,
		engine:       engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/extract", s.handleExtract)
		r.Get("/status/{jobId}", s.handleStatus)
		r.Get("/jobs", s.handleListJobs)

		r.Get("/jurisdictions", s.handleListJurisdictions)
		r.Post("/jurisdictions/{jurisdiction}/reload", s.handleReload)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Liveness only; store connectivity is reported per job.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		JurisdictionsReady: len(s.engine.Registry().Loaded()),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	jobReq := req.toJobRequest()
	id, err := s.orchestrator.Submit(r.Context(), jobReq)
	if err != nil {
		respondError(w, apperr.HTTPStatus(err), "failed to submit job", err)
		return
	}

	job, err := s.orchestrator.Get(id)
	if err != nil {
		respondError(w, apperr.HTTPStatus(err), "failed to read job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, ExtractResponse{
		JobID:        id,
		Status:       string(jobs.StatusQueued),
		Jurisdiction: job.Request.Jurisdiction,
		DocumentType: job.Request.DocumentType,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := s.orchestrator.Get(jobID)
	if err != nil {
		respondError(w, apperr.HTTPStatus(err), "job not found", err)
		return
	}

	respondJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list := s.orchestrator.List()

	resp := JobsListResponse{
		Jobs:      make([]JobResponse, 0, len(list)),
		TotalJobs: len(list),
	}
	for _, j := range list {
		resp.Jobs = append(resp.Jobs, newJobResponse(j))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJurisdictions(w http.ResponseWriter, r *http.Request) {
	available, err := s.engine.Registry().Jurisdictions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jurisdictions", err)
		return
	}

	loaded := s.engine.Registry().Loaded()
	if available == nil {
		available = []string{}
	}
	if loaded == nil {
		loaded = []string{}
	}
	respondJSON(w, http.StatusOK, JurisdictionsResponse{Jurisdictions: available, Loaded: loaded})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	jurisdiction := chi.URLParam(r, "jurisdiction")

	if err := s.engine.Reload(r.Context(), jurisdiction); err != nil {
		logger.Warn("Rule reload failed", "jurisdiction", jurisdiction, "error", err)
		respondError(w, apperr.HTTPStatus(err), "failed to reload rules", err)
		return
	}

	logger.Info("Rules reloaded", "jurisdiction", jurisdiction)
	respondJSON(w, http.StatusOK, ReloadResponse{Jurisdiction: jurisdiction, Status: "reloaded"})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
