package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/internal/metrics"
	"github.com/liamcoop/courtextract/patterns"
)

// DefaultFields are extracted when a caller asks for none.
var DefaultFields = []string{patterns.FieldIncidentDate, patterns.FieldIncidentEndDate}

// Document is the input to one extraction.
type Document struct {
	ID           string
	Jurisdiction string
	Text         string
	Metadata     Metadata
}

// Result is the outcome of extracting one document. It is never modified
// after ExtractDocument returns it.
type Result struct {
	DocumentID   string                `json:"document_id"`
	Jurisdiction string                `json:"jurisdiction"`
	Fields       map[string]Resolution `json:"fields"`
	Emails       []string              `json:"emails"`
	ExtractedAt  time.Time             `json:"extracted_at"`
}

// Value returns the resolved value of field, or nil.
func (r *Result) Value(field string) *Date {
	res, ok := r.Fields[field]
	if !ok || !res.Found() {
		return nil
	}
	v := *res.Value
	return &v
}

// Engine extracts fields from document text with per-jurisdiction rules.
// It is safe for concurrent use.
type Engine struct {
	registry *Registry
	now      func() time.Time
	metrics  *metrics.Metrics
}

type engineConfig struct {
	cache RuleSetCache
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithCache replaces the default process-lifetime rule set cache.
func WithCache(c RuleSetCache) Option {
	return func(cfg *engineConfig) {
		if c != nil {
			cfg.cache = c
		}
	}
}

// WithClock sets the clock used for "today" and timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *engineConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

func NewEngine(store patterns.PatternStore, opts ...Option) (*Engine, error) {
	cfg := engineConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	conditions, err := NewConditionCompiler()
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry: NewRegistry(store, cfg.cache, conditions),
		now:      cfg.now,
		metrics:  metrics.New(),
	}, nil
}

// Registry exposes the rule set registry for reloads and listings.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Reload recompiles one jurisdiction's rules.
func (e *Engine) Reload(ctx context.Context, jurisdiction string) error {
	_, err := e.registry.Reload(ctx, jurisdiction)
	result := "ok"
	if err != nil {
		result = "error"
	}
	e.metrics.RuleSetReloads.WithLabelValues(result).Inc()
	return err
}

// ExtractDocument resolves the requested fields, DefaultFields when none are
// given. Empty text is an ExtractionError and an unknown or broken rule set a
// ConfigurationError; a field with no match is reported in the result.
func (e *Engine) ExtractDocument(ctx context.Context, doc Document, fields ...string) (*Result, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &apperr.ExtractionError{DocumentID: doc.ID, Reason: "document text is empty"}
	}

	set, err := e.registry.Get(ctx, doc.Jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for %s: %w", doc.Jurisdiction, err)
	}

	start := e.now()
	if len(fields) == 0 {
		fields = DefaultFields
	}

	resolver := NewResolver(set, DateOf(start))
	resolved := make(map[string]Resolution, len(fields))

	resolve := func(field string) Resolution {
		if r, ok := resolved[field]; ok {
			return r
		}
		if !set.Set.HasField(field) {
			return Resolution{
				Field:    field,
				Status:   StatusNotFound,
				Ranked:   []ScoredCandidate{},
				Rejected: []Rejection{},
				Reason:   "no rules for field",
			}
		}
		candidates := set.Extract(doc.Text, field)
		for _, c := range candidates {
			e.metrics.CandidatesFound.WithLabelValues(field, string(c.Strategy)).Inc()
		}
		r := resolver.Resolve(field, candidates, doc.Metadata)
		resolved[field] = r
		return r
	}

	for _, field := range fields {
		var r Resolution
		if field == patterns.FieldIncidentEndDate && !set.Set.HasField(field) {
			r = deriveEndDate(resolve(patterns.FieldIncidentDate))
		} else {
			r = resolve(field)
		}
		resolved[field] = r
	}

	out := make(map[string]Resolution, len(fields))
	for _, field := range fields {
		r := resolved[field]
		out[field] = r
		e.metrics.FieldsResolved.WithLabelValues(field, string(r.Status)).Inc()
	}

	e.metrics.ExtractionDuration.WithLabelValues(set.Jurisdiction()).Observe(e.now().Sub(start).Seconds())

	return &Result{
		DocumentID:   doc.ID,
		Jurisdiction: set.Jurisdiction(),
		Fields:       out,
		Emails:       ExtractEmails(doc.Text),
		ExtractedAt:  start.UTC(),
	}, nil
}
