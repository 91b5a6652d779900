package config

import (
	"testing"
	"time"

	"github.com/liamcoop/courtextract/internal/apperr"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "PATTERN_SOURCE", "PATTERNS_DIR", "RULE_CACHE_TTL", "DOCUMENT_SOURCE",
		"DOCUMENT_ROOT", "WORKERS", "QUEUE_SIZE", "JOB_TIMEOUT", "EXTRACTED_BY", "JOB_RETENTION",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.PatternSource != PatternSourceFile || cfg.DocumentSource != DocumentSourceFile {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Workers != 4 || cfg.QueueSize != 100 || cfg.JobTimeout != 10*time.Minute {
		t.Errorf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.ExtractedBy != "courtextract" {
		t.Errorf("ExtractedBy = %q", cfg.ExtractedBy)
	}
	if cfg.JobRetention != 24*time.Hour {
		t.Errorf("JobRetention = %s", cfg.JobRetention)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PATTERN_SOURCE", "Postgres")
	t.Setenv("PATTERN_DATABASE_URL", "postgres://localhost/patterns")
	t.Setenv("DOCUMENT_SOURCE", "gcs")
	t.Setenv("GCS_BUCKET_NAME", "court-docs")
	t.Setenv("WORKERS", "8")
	t.Setenv("RULE_CACHE_TTL", "5m")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}
	if cfg.PatternSource != PatternSourcePostgres || cfg.DocumentSource != DocumentSourceGCS {
		t.Errorf("sources = %q, %q", cfg.PatternSource, cfg.DocumentSource)
	}
	if cfg.Workers != 8 || cfg.RuleCacheTTL != 5*time.Minute {
		t.Errorf("Workers = %d, RuleCacheTTL = %s", cfg.Workers, cfg.RuleCacheTTL)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad workers", map[string]string{"WORKERS": "many"}},
		{"zero workers", map[string]string{"WORKERS": "0"}},
		{"bad timeout", map[string]string{"JOB_TIMEOUT": "soon"}},
		{"negative retention", map[string]string{"JOB_RETENTION": "-1h"}},
		{"unknown pattern source", map[string]string{"PATTERN_SOURCE": "s3"}},
		{"postgres without url", map[string]string{"PATTERN_SOURCE": "postgres", "PATTERN_DATABASE_URL": ""}},
		{"gcs without bucket", map[string]string{"DOCUMENT_SOURCE": "gcs", "GCS_BUCKET_NAME": ""}},
		{"negative ttl", map[string]string{"RULE_CACHE_TTL": "-1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if !apperr.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}
