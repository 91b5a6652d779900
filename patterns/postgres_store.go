package patterns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore reads rule sets from the pattern_sets and pattern_rules tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads the set header and its active rules in declaration order.
func (s *PostgresStore) Load(ctx context.Context, jurisdiction string) (*RuleSet, error) {
	key := NormalizeJurisdiction(jurisdiction)

	var (
		set          RuleSet
		minYear      sql.NullInt64
		fieldsJSON   []byte
		filingAnchor pq.StringArray
		incidentAnch pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT jurisdiction, min_year, filing_anchors, incident_anchors, field_policies
		FROM pattern_sets
		WHERE jurisdiction = $1
	`, key).Scan(&set.Jurisdiction, &minYear, &filingAnchor, &incidentAnch, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, configError(key, "no rule set", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern set %s: %w", key, err)
	}

	set.MinYear = int(minYear.Int64)
	set.FilingAnchors = []string(filingAnchor)
	set.IncidentAnchors = []string(incidentAnch)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &set.Fields); err != nil {
			return nil, configError(key, "invalid field_policies", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field, strategy, expression, anchors, search_window, priority, condition
		FROM pattern_rules
		WHERE jurisdiction = $1 AND active = true
		ORDER BY position ASC, id ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r          PatternRule
			strategy   string
			expression sql.NullString
			condition  sql.NullString
			anchors    pq.StringArray
			window     sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Field, &strategy, &expression, &anchors, &window, &r.Priority, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan pattern rule: %w", err)
		}
		r.Strategy = Strategy(strategy)
		r.Pattern = Pattern{
			Expression: expression.String,
			Anchors:    []string(anchors),
			Window:     int(window.Int64),
		}
		r.Condition = condition.String
		set.Rules = append(set.Rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern rules: %w", err)
	}

	return prepare(&set, key)
}

// List returns every jurisdiction with a pattern set.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT jurisdiction FROM pattern_sets ORDER BY jurisdiction`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern sets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var j string
		if err := rows.Scan(&j); err != nil {
			return nil, fmt.Errorf("failed to scan jurisdiction: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Import writes a validated rule set, replacing any existing rules for the
// jurisdiction in one transaction. Used by seeding tools, not at request time.
func (s *PostgresStore) Import(ctx context.Context, set *RuleSet) error {
	if err := Validate(set); err != nil {
		return configError(set.Jurisdiction, "invalid rule set", err)
	}
	key := NormalizeJurisdiction(set.Jurisdiction)

	fields := set.Fields
	if fields == nil {
		fields = map[string]FieldConfig{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal field policies: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pattern_sets (jurisdiction, min_year, filing_anchors, incident_anchors, field_policies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (jurisdiction) DO UPDATE SET
			min_year = EXCLUDED.min_year,
			filing_anchors = EXCLUDED.filing_anchors,
			incident_anchors = EXCLUDED.incident_anchors,
			field_policies = EXCLUDED.field_policies,
			updated_at = NOW()
	`, key, nullableInt(set.MinYear), pq.Array(nonNil(set.FilingAnchors)), pq.Array(nonNil(set.IncidentAnchors)), string(fieldsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert pattern set: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_rules WHERE jurisdiction = $1`, key); err != nil {
		return fmt.Errorf("failed to clear pattern rules: %w", err)
	}

	for i, r := range set.Rules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pattern_rules (id, jurisdiction, field, strategy, expression, anchors, search_window, priority, condition, position, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true)
		`, r.ID, key, r.Field, string(r.Strategy), nullableString(r.Pattern.Expression), pq.Array(nonNil(r.Pattern.Anchors)),
			nullableInt(r.Pattern.Window), r.Priority, nullableString(r.Condition), i)
		if err != nil {
			return fmt.Errorf("failed to insert pattern rule %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
