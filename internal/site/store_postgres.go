package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists site records in the sites table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const siteColumns = `key, display_name, primary_host, alias_hosts, default_locale, locales,
	providers, blob_container, session_cookie, status,
	csp_script_src, csp_style_src, csp_img_src, csp_connect_src, csp_frame_ancestors,
	consent_version, created_at, updated_at`

func (s *PostgresStore) List(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, key id.SiteKey) (Site, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE key = $1`, key.String())
	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Site{}, sentinel.ErrNotFound
		}
		return Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, site Site) error {
	query := `
		INSERT INTO sites (` + siteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			primary_host = EXCLUDED.primary_host,
			alias_hosts = EXCLUDED.alias_hosts,
			default_locale = EXCLUDED.default_locale,
			locales = EXCLUDED.locales,
			providers = EXCLUDED.providers,
			blob_container = EXCLUDED.blob_container,
			session_cookie = EXCLUDED.session_cookie,
			status = EXCLUDED.status,
			csp_script_src = EXCLUDED.csp_script_src,
			csp_style_src = EXCLUDED.csp_style_src,
			csp_img_src = EXCLUDED.csp_img_src,
			csp_connect_src = EXCLUDED.csp_connect_src,
			csp_frame_ancestors = EXCLUDED.csp_frame_ancestors,
			consent_version = EXCLUDED.consent_version,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		site.Key.String(),
		site.DisplayName,
		site.PrimaryHost,
		pq.Array(site.AliasHosts),
		site.DefaultLocale,
		pq.Array(site.Locales),
		pq.Array(site.Providers),
		site.BlobContainer,
		site.SessionCookie,
		string(site.Status),
		pq.Array(site.CSP.ScriptSrc),
		pq.Array(site.CSP.StyleSrc),
		pq.Array(site.CSP.ImgSrc),
		pq.Array(site.CSP.ConnectSrc),
		pq.Array(site.CSP.FrameAncestors),
		site.ConsentVersion,
		site.CreatedAt,
		site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (Site, error) {
	var (
		site    Site
		rawKey  string
		status  string
		aliases pq.StringArray
		locales pq.StringArray
		provs   pq.StringArray
		script  pq.StringArray
		style   pq.StringArray
		img     pq.StringArray
		connect pq.StringArray
		frame   pq.StringArray
	)
	err := row.Scan(
		&rawKey, &site.DisplayName, &site.PrimaryHost, &aliases, &site.DefaultLocale, &locales,
		&provs, &site.BlobContainer, &site.SessionCookie, &status,
		&script, &style, &img, &connect, &frame,
		&site.ConsentVersion, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		return Site{}, err
	}
	site.Key = id.SiteKey(rawKey)
	site.Status = Status(status)
	site.AliasHosts = aliases
	site.Locales = locales
	site.Providers = provs
	site.CSP = CSPPolicy{
		ScriptSrc:      script,
		StyleSrc:       style,
		ImgSrc:         img,
		ConnectSrc:     connect,
		FrameAncestors: frame,
	}
	return site, nil
}
