package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists templates in the email_templates table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string, siteKey id.SiteKey, locale string) (Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, site_key, locale, subject, body, updated_at
		FROM email_templates WHERE key = $1 AND site_key = $2 AND locale = $3
	`, key, siteKey.String(), locale)

	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, sentinel.ErrNotFound
		}
		return Template{}, fmt.Errorf("get email template: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, t Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_templates (key, site_key, locale, subject, body, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key, site_key, locale) DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`, t.Key, t.SiteKey.String(), t.Locale, t.Subject, t.Body, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert email template: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, siteKey id.SiteKey) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, site_key, locale, subject, body, updated_at
		FROM email_templates WHERE site_key = $1 ORDER BY key, locale
	`, siteKey.String())
	if err != nil {
		return nil, fmt.Errorf("list email templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var t Template
	var rawSite string
	if err := row.Scan(&t.Key, &rawSite, &t.Locale, &t.Subject, &t.Body, &t.UpdatedAt); err != nil {
		return Template{}, err
	}
	t.SiteKey = id.SiteKey(rawSite)
	return t, nil
}
