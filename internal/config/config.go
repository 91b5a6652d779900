// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/liamcoop/courtextract/internal/apperr"
)

const (
	PatternSourceFile     = "file"
	PatternSourcePostgres = "postgres"

	DocumentSourceFile = "file"
	DocumentSourceGCS  = "gcs"
)

// Config holds everything the server and CLI need to wire the service.
type Config struct {
	Port string

	DisplayDatabaseURL string
	BatchDatabaseURL   string

	PatternSource      string
	PatternsDir        string
	PatternDatabaseURL string
	RuleCacheTTL       time.Duration

	DocumentSource     string
	DocumentRoot       string
	GCSBucketName      string
	GCPCredentialsJSON string
	PDFToTextPath      string

	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	ExtractedBy string
	// JobRetention is how long finished jobs stay queryable. Zero keeps them
	// for the process lifetime.
	JobRetention time.Duration
}

// Load reads a .env file from the working directory when one exists, then the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, &apperr.ValidationError{Message: "failed to read .env", Cause: err}
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	var p parser
	cfg := &Config{
		Port: getEnvString("PORT", "8080"),

		DisplayDatabaseURL: os.Getenv("DISPLAY_DATABASE_URL"),
		BatchDatabaseURL:   os.Getenv("BATCH_DATABASE_URL"),

		PatternSource:      strings.ToLower(getEnvString("PATTERN_SOURCE", PatternSourceFile)),
		PatternsDir:        getEnvString("PATTERNS_DIR", "config/patterns"),
		PatternDatabaseURL: os.Getenv("PATTERN_DATABASE_URL"),
		RuleCacheTTL:       p.duration("RULE_CACHE_TTL", 0),

		DocumentSource:     strings.ToLower(getEnvString("DOCUMENT_SOURCE", DocumentSourceFile)),
		DocumentRoot:       getEnvString("DOCUMENT_ROOT", "documents"),
		GCSBucketName:      os.Getenv("GCS_BUCKET_NAME"),
		GCPCredentialsJSON: os.Getenv("GCP_CREDENTIALS_JSON"),
		PDFToTextPath:      os.Getenv("PDFTOTEXT_PATH"),

		Workers:      p.int("WORKERS", 4),
		QueueSize:    p.int("QUEUE_SIZE", 100),
		JobTimeout:   p.duration("JOB_TIMEOUT", 10*time.Minute),
		ExtractedBy:  getEnvString("EXTRACTED_BY", "courtextract"),
		JobRetention: p.duration("JOB_RETENTION", 24*time.Hour),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected sources have what they need.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &apperr.ValidationError{Message: fmt.Sprintf(format, args...)}
	}

	if c.Port == "" {
		return invalid("PORT cannot be empty")
	}

	switch c.PatternSource {
	case PatternSourceFile:
		if c.PatternsDir == "" {
			return invalid("PATTERNS_DIR is required when PATTERN_SOURCE=file")
		}
	case PatternSourcePostgres:
		if c.PatternDatabaseURL == "" {
			return invalid("PATTERN_DATABASE_URL is required when PATTERN_SOURCE=postgres")
		}
	default:
		return invalid("PATTERN_SOURCE must be %q or %q, got %q", PatternSourceFile, PatternSourcePostgres, c.PatternSource)
	}

	switch c.DocumentSource {
	case DocumentSourceFile:
		if c.DocumentRoot == "" {
			return invalid("DOCUMENT_ROOT is required when DOCUMENT_SOURCE=file")
		}
	case DocumentSourceGCS:
		if c.GCSBucketName == "" {
			return invalid("GCS_BUCKET_NAME is required when DOCUMENT_SOURCE=gcs")
		}
	default:
		return invalid("DOCUMENT_SOURCE must be %q or %q, got %q", DocumentSourceFile, DocumentSourceGCS, c.DocumentSource)
	}

	if c.Workers < 1 {
		return invalid("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return invalid("QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}
	if c.JobTimeout <= 0 {
		return invalid("JOB_TIMEOUT must be positive, got %s", c.JobTimeout)
	}
	if c.RuleCacheTTL < 0 {
		return invalid("RULE_CACHE_TTL cannot be negative")
	}
	if c.JobRetention < 0 {
		return invalid("JOB_RETENTION cannot be negative")
	}
	return nil
}

// parser keeps the first conversion error so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = &apperr.ValidationError{Message: fmt.Sprintf("invalid %s %q", key, v), Cause: err}
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = &apperr.ValidationError{Message: fmt.Sprintf("invalid %s %q", key, v), Cause: err}
	}
	return d
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
