package oauthstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
	"atrium/pkg/platform/tx"
)

// PostgresStore persists pending logins in the oauth_states table. The
// consume claim is a single conditional UPDATE...RETURNING, so two racing
// callers are serialized by the database: one gets the row, the other sees
// zero rows updated and is told why.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, state State) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO oauth_states (token, site_key, provider, code_verifier, return_path, nonce, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`,
		state.Token,
		state.SiteKey.String(),
		state.Provider,
		state.CodeVerifier,
		state.ReturnPath,
		state.Nonce,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create oauth state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Consume(ctx context.Context, token string, now time.Time) (State, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		UPDATE oauth_states
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING token, site_key, provider, code_verifier, return_path, COALESCE(nonce, ''), created_at, expires_at, consumed_at
	`, token, now)

	state, err := scanState(row)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("consume oauth state: %w", err)
	}

	// The claim missed; look at the row to say why.
	row = s.conn(ctx).QueryRowContext(ctx, `
		SELECT token, site_key, provider, code_verifier, return_path, COALESCE(nonce, ''), created_at, expires_at, consumed_at
		FROM oauth_states WHERE token = $1
	`, token)
	state, err = scanState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, sentinel.ErrNotFound
		}
		return State{}, fmt.Errorf("inspect oauth state: %w", err)
	}
	if state.Expired(now) {
		return State{}, sentinel.ErrExpired
	}
	return State{}, sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) Release(ctx context.Context, token string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE oauth_states SET consumed_at = NULL WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("release oauth state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release oauth state: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM oauth_states WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}
	return int(affected), nil
}

func scanState(row *sql.Row) (State, error) {
	var (
		state   State
		siteKey string
	)
	err := row.Scan(
		&state.Token, &siteKey, &state.Provider, &state.CodeVerifier,
		&state.ReturnPath, &state.Nonce, &state.CreatedAt, &state.ExpiresAt, &state.ConsumedAt,
	)
	if err != nil {
		return State{}, err
	}
	state.SiteKey = id.SiteKey(siteKey)
	return state, nil
}
