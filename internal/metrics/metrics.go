// Package metrics exposes Prometheus collectors for extraction, jobs and
// store synchronization.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the service collectors.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsFinished  *prometheus.CounterVec
	JobsRunning   prometheus.Gauge

	ExtractionDuration *prometheus.HistogramVec
	FieldsResolved     *prometheus.CounterVec
	CandidatesFound    *prometheus.CounterVec

	SyncWrites *prometheus.CounterVec

	RuleSetReloads *prometheus.CounterVec
}

// New returns the process-wide collectors, registering them on first use so
// repeated calls never panic on duplicate registration.
//
// Metrics:
//   - courtextract_jobs_submitted_total
//   - courtextract_jobs_finished_total{status}
//   - courtextract_jobs_running
//   - courtextract_extraction_duration_seconds{jurisdiction}
//   - courtextract_fields_resolved_total{field,status}
//   - courtextract_candidates_found_total{field,strategy}
//   - courtextract_sync_writes_total{store,result}
//   - courtextract_ruleset_reloads_total{result}
func New() *Metrics {
	once.Do(func() {
		global = &Metrics{
			JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "courtextract_jobs_submitted_total",
				Help: "Total number of extraction jobs accepted",
			}),
			JobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "courtextract_jobs_finished_total",
				Help: "Total number of extraction jobs that reached a terminal state",
			}, []string{"status"}), // "completed" or "failed"
			JobsRunning: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "courtextract_jobs_running",
				Help: "Number of jobs currently running",
			}),
			ExtractionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "courtextract_extraction_duration_seconds",
				Help:    "Time spent extracting fields from one document",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			}, []string{"jurisdiction"}),
			FieldsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "courtextract_fields_resolved_total",
				Help: "Field resolutions by outcome",
			}, []string{"field", "status"}),
			CandidatesFound: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "courtextract_candidates_found_total",
				Help: "Candidates produced by each strategy",
			}, []string{"field", "strategy"}),
			SyncWrites: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "courtextract_sync_writes_total",
				Help: "Store writes by store and result",
			}, []string{"store", "result"}), // result: "updated", "not_found", "unavailable", "error"
			RuleSetReloads: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "courtextract_ruleset_reloads_total",
				Help: "Rule set reloads by result",
			}, []string{"result"}),
		}
	})
	return global
}
