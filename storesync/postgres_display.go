package storesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/apperr"
)

// PostgresDisplayStore updates court_cases.documents in place and serves the
// document catalog used for batch discovery.
type PostgresDisplayStore struct {
	db *sql.DB
}

func NewPostgresDisplayStore(db *sql.DB) *PostgresDisplayStore {
	return &PostgresDisplayStore{db: db}
}

// ApplyToDocument locks the case row, merges rec into the matching document
// entry and writes the collection back in one transaction.
func (s *PostgresDisplayStore) ApplyToDocument(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyPQ(DisplayStoreName, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	caseID, docs, err := s.lockCase(ctx, tx, rec)
	if err != nil {
		return err
	}

	if !docs.Merge(rec) {
		return &apperr.DocumentNotFoundError{Store: DisplayStoreName, CaseID: caseID, DocumentPath: rec.DocumentPath}
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE court_cases
		SET documents = $1, updated_at = $2
		WHERE id = $3
	`, string(data), rec.UpdatedAt, caseID); err != nil {
		return classifyPQ(DisplayStoreName, "failed to update case", err)
	}

	if err := tx.Commit(); err != nil {
		return classifyPQ(DisplayStoreName, "failed to commit", err)
	}
	return nil
}

// lockCase selects the case FOR UPDATE, by id when given, otherwise by the
// document path it contains.
func (s *PostgresDisplayStore) lockCase(ctx context.Context, tx *sql.Tx, rec Record) (string, Documents, error) {
	var (
		row *sql.Row
		id  string
		raw []byte
	)
	if rec.CaseID != "" {
		row = tx.QueryRowContext(ctx, `
			SELECT id, documents FROM court_cases WHERE id = $1 FOR UPDATE
		`, rec.CaseID)
	} else {
		probe, err := json.Marshal([]map[string]string{{keyDocPath: rec.DocumentPath}})
		if err != nil {
			return "", nil, err
		}
		row = tx.QueryRowContext(ctx, `
			SELECT id, documents FROM court_cases
			WHERE documents @> $1::jsonb
			ORDER BY id
			LIMIT 1
			FOR UPDATE
		`, string(probe))
	}

	err := row.Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, &apperr.DocumentNotFoundError{Store: DisplayStoreName, CaseID: rec.CaseID, DocumentPath: rec.DocumentPath}
	}
	if err != nil {
		return "", nil, classifyPQ(DisplayStoreName, "failed to load case", err)
	}

	docs, err := ParseDocuments(raw)
	if err != nil {
		return "", nil, fmt.Errorf("case %s: %w", id, err)
	}
	return id, docs, nil
}

// FindDocuments lists catalog documents of one jurisdiction whose
// description contains the document type and whose filing date falls in the
// query range. Documents without their own filed_date use the case's.
func (s *PostgresDisplayStore) FindDocuments(ctx context.Context, q CatalogQuery) ([]CatalogDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, d.entry->>'doc_path', COALESCE(d.entry->>'description', ''),
		       COALESCE(NULLIF(d.entry->>'filed_date', '')::date, c.filed_at::date)
		FROM court_cases c
		CROSS JOIN LATERAL jsonb_array_elements(c.documents) AS d(entry)
		WHERE lower(regexp_replace(trim(c.court_name), '\s+', '_', 'g')) = $1
		  AND lower(COALESCE(d.entry->>'description', '')) LIKE '%' || $2 || '%'
		  AND COALESCE(NULLIF(d.entry->>'filed_date', '')::date, c.filed_at::date) BETWEEN $3 AND $4
		  AND COALESCE(d.entry->>'doc_path', '') <> ''
		ORDER BY 4, c.id, 2
	`, q.Jurisdiction, q.normalizedType(), q.From.Time(), q.To.Time())
	if err != nil {
		return nil, classifyPQ(DisplayStoreName, "failed to query catalog", err)
	}
	defer rows.Close()

	var docs []CatalogDocument
	for rows.Next() {
		var (
			d     CatalogDocument
			filed sql.NullTime
		)
		if err := rows.Scan(&d.CaseID, &d.DocumentPath, &d.Description, &filed); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		if filed.Valid {
			fd := extraction.DateOf(filed.Time)
			d.FiledDate = &fd
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPQ(DisplayStoreName, "error iterating catalog", err)
	}
	return docs, nil
}

// Document returns one entry of a case, for inspection and tests.
func (s *PostgresDisplayStore) Document(ctx context.Context, caseID, path string) (DocumentEntry, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT documents FROM court_cases WHERE id = $1`, caseID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentEntry{}, &apperr.DocumentNotFoundError{Store: DisplayStoreName, CaseID: caseID, DocumentPath: path}
	}
	if err != nil {
		return DocumentEntry{}, classifyPQ(DisplayStoreName, "failed to load case", err)
	}
	docs, err := ParseDocuments(raw)
	if err != nil {
		return DocumentEntry{}, err
	}
	i := docs.Find(path)
	if i < 0 {
		return DocumentEntry{}, &apperr.DocumentNotFoundError{Store: DisplayStoreName, CaseID: caseID, DocumentPath: path}
	}
	return docs[i], nil
}

// classifyPQ turns driver failures into StoreUnavailableError. Server-side
// errors other than connection exceptions stay ordinary errors.
func classifyPQ(store, msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() != "08" && pqErr.Code.Class() != "57" {
		return fmt.Errorf("%s: %s: %w", store, msg, err)
	}
	return &apperr.StoreUnavailableError{Store: store, Cause: fmt.Errorf("%s: %w", msg, err)}
}
