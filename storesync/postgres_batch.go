package storesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
)

// PostgresBatchStore upserts one extraction_results row per job and document.
type PostgresBatchStore struct {
	pool *pgxpool.Pool
}

// ConnectBatchStore opens and pings a connection pool.
func ConnectBatchStore(ctx context.Context, databaseURL string) (*PostgresBatchStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to batch database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping batch database: %w", err)
	}

	return &PostgresBatchStore{pool: pool}, nil
}

func NewPostgresBatchStore(pool *pgxpool.Pool) *PostgresBatchStore {
	return &PostgresBatchStore{pool: pool}
}

func (s *PostgresBatchStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const upsertResultSQL = `
	INSERT INTO extraction_results (
		job_id, document_path, case_id, jurisdiction, incident_date, incident_end_date,
		emails, extraction_timestamp, extracted_by, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (job_id, document_path) DO UPDATE SET
		case_id = EXCLUDED.case_id,
		jurisdiction = EXCLUDED.jurisdiction,
		incident_date = EXCLUDED.incident_date,
		incident_end_date = EXCLUDED.incident_end_date,
		emails = EXCLUDED.emails,
		extraction_timestamp = EXCLUDED.extraction_timestamp,
		extracted_by = EXCLUDED.extracted_by,
		updated_at = EXCLUDED.updated_at`

func upsertArgs(rec Record) []any {
	return []any{
		rec.JobID, rec.DocumentPath, rec.CaseID, rec.Jurisdiction,
		dateTime(rec.IncidentDate), dateTime(rec.IncidentEndDate),
		rec.emails(), rec.ExtractionTimestamp, rec.ExtractedBy, rec.UpdatedAt,
	}
}

// Upsert writes rec, replacing any earlier row for the same key.
func (s *PostgresBatchStore) Upsert(ctx context.Context, rec Record) error {
	if _, err := s.pool.Exec(ctx, upsertResultSQL, upsertArgs(rec)...); err != nil {
		return classifyPgx("failed to upsert extraction result", err)
	}
	return nil
}

// Get reads one row back.
func (s *PostgresBatchStore) Get(ctx context.Context, jobID, documentPath string) (Record, error) {
	var (
		rec           Record
		incident, end *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT job_id, document_path, case_id, jurisdiction, incident_date, incident_end_date,
		       emails, extraction_timestamp, extracted_by, updated_at
		FROM extraction_results
		WHERE job_id = $1 AND document_path = $2
	`, jobID, documentPath).Scan(
		&rec.JobID, &rec.DocumentPath, &rec.CaseID, &rec.Jurisdiction, &incident, &end,
		&rec.Emails, &rec.ExtractionTimestamp, &rec.ExtractedBy, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, &apperr.NotFoundError{Kind: "extraction result", ID: jobID + "/" + documentPath}
	}
	if err != nil {
		return Record{}, classifyPgx("failed to read extraction result", err)
	}

	if incident != nil {
		d := extraction.DateOf(*incident)
		rec.IncidentDate = &d
	}
	if end != nil {
		d := extraction.DateOf(*end)
		rec.IncidentEndDate = &d
	}
	return rec, nil
}

// classifyPgx keeps server-side errors as ordinary errors and treats
// everything else, including connection exceptions, as unavailability.
func classifyPgx(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && !strings.HasPrefix(pgErr.Code, "08") && !strings.HasPrefix(pgErr.Code, "57") {
		return fmt.Errorf("%s: %s: %w", BatchStoreName, msg, err)
	}
	return &apperr.StoreUnavailableError{Store: BatchStoreName, Cause: fmt.Errorf("%s: %w", msg, err)}
}
