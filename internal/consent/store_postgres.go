package consent

import (
	"context"
	"database/sql"
	"fmt"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/tx"
)

// PostgresStore persists decisions in the consent_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Put(ctx context.Context, records []Record) error {
	// A banner submission covers several categories at once; they land
	// together or not at all.
	if _, joined := tx.From(ctx); !joined && len(records) > 1 {
		return tx.Run(ctx, s.db, func(ctx context.Context) error {
			return s.Put(ctx, records)
		})
	}

	conn := s.conn(ctx)
	for _, r := range records {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO consent_records (subject, site_key, category, granted, policy_version, decided_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (subject, site_key, category) DO UPDATE SET
				granted = EXCLUDED.granted,
				policy_version = EXCLUDED.policy_version,
				decided_at = EXCLUDED.decided_at
		`, r.Subject, r.SiteKey.String(), string(r.Category), r.Granted, r.PolicyVersion, r.DecidedAt)
		if err != nil {
			return fmt.Errorf("put consent record: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, subject string, siteKey id.SiteKey) ([]Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT subject, site_key, category, granted, policy_version, decided_at
		FROM consent_records WHERE subject = $1 AND site_key = $2
		ORDER BY category
	`, subject, siteKey.String())
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var rawSite, rawCategory string
		if err := rows.Scan(&r.Subject, &rawSite, &rawCategory, &r.Granted, &r.PolicyVersion, &r.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		r.SiteKey = id.SiteKey(rawSite)
		r.Category = Category(rawCategory)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, subject string, siteKey id.SiteKey) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM consent_records WHERE subject = $1 AND site_key = $2
	`, subject, siteKey.String())
	if err != nil {
		return fmt.Errorf("delete consent records: %w", err)
	}
	return nil
}
