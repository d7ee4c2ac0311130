package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
	"atrium/pkg/requestcontext"
)

// PostgresStore persists identities in the users and social_accounts tables.
// Link-or-create runs in one transaction; the unique indexes on
// (provider, subject) and lower(email) are what make concurrent first logins
// converge on a single user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindOrCreateBySocial(ctx context.Context, profile Profile, siteKey id.SiteKey) (User, SocialAccount, bool, error) {
	now := requestcontext.Now(ctx)

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, SocialAccount{}, false, fmt.Errorf("begin link tx: %w", err)
	}
	defer txn.Rollback()

	// Existing subject wins regardless of today's email.
	var account SocialAccount
	row := txn.QueryRowContext(ctx, `
		UPDATE social_accounts SET last_login = $3, email = $4
		WHERE provider = $1 AND subject = $2
		RETURNING id, user_id, provider, subject, email, raw_profile, linked_at, last_login
	`, profile.Provider, profile.Subject, now, profile.Email)
	account, err = scanAccount(row)
	switch {
	case err == nil:
		user, err := findUserTx(ctx, txn, account.UserID)
		if err != nil {
			return User{}, SocialAccount{}, false, err
		}
		return user, account, false, txn.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, SocialAccount{}, false, fmt.Errorf("find social account: %w", err)
	}

	// New subject: attach to the user owning this email, or mint one. The
	// ON CONFLICT upsert makes two racing first logins agree on one user row.
	var user User
	row = txn.QueryRowContext(ctx, `
		INSERT INTO users (id, email, display_name, signup_site, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(email)) DO UPDATE SET email = users.email
		RETURNING id, email, display_name, signup_site, created_at, created_at = $5 AS created
	`, uuid.New(), profile.Email, profile.DisplayName, siteKey.String(), now)

	var rawID uuid.UUID
	var rawSite string
	var created bool
	if err := row.Scan(&rawID, &user.Email, &user.DisplayName, &rawSite, &user.CreatedAt, &created); err != nil {
		return User{}, SocialAccount{}, false, fmt.Errorf("find or create user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.SignupSite = id.SiteKey(rawSite)

	row = txn.QueryRowContext(ctx, `
		INSERT INTO social_accounts (id, user_id, provider, subject, email, raw_profile, linked_at, last_login)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb), $7, $7)
		ON CONFLICT (provider, subject) DO UPDATE SET last_login = EXCLUDED.last_login
		RETURNING id, user_id, provider, subject, email, raw_profile, linked_at, last_login
	`, uuid.New(), uuid.UUID(user.ID), profile.Provider, profile.Subject, profile.Email, nullableJSON(profile.Raw), now)
	account, err = scanAccount(row)
	if err != nil {
		return User{}, SocialAccount{}, false, fmt.Errorf("link social account: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return User{}, SocialAccount{}, false, fmt.Errorf("commit link tx: %w", err)
	}
	return user, account, created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, signup_site, created_at FROM users WHERE id = $1
	`, uuid.UUID(userID))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sentinel.ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ListSocialAccounts(ctx context.Context, userID id.UserID) ([]SocialAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, subject, email, raw_profile, linked_at, last_login
		FROM social_accounts WHERE user_id = $1 ORDER BY linked_at
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	defer rows.Close()

	var accounts []SocialAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan social account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func findUserTx(ctx context.Context, txn *sql.Tx, userID id.UserID) (User, error) {
	row := txn.QueryRowContext(ctx, `
		SELECT id, email, display_name, signup_site, created_at FROM users WHERE id = $1
	`, uuid.UUID(userID))
	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("load linked user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var rawID uuid.UUID
	var rawSite string
	if err := row.Scan(&rawID, &user.Email, &user.DisplayName, &rawSite, &user.CreatedAt); err != nil {
		return User{}, err
	}
	user.ID = id.UserID(rawID)
	user.SignupSite = id.SiteKey(rawSite)
	return user, nil
}

func scanAccount(row rowScanner) (SocialAccount, error) {
	var account SocialAccount
	var rawID, rawUserID uuid.UUID
	if err := row.Scan(&rawID, &rawUserID, &account.Provider, &account.Subject,
		&account.Email, &account.RawProfile, &account.LinkedAt, &account.LastLogin); err != nil {
		return SocialAccount{}, err
	}
	account.ID = id.SocialAccountID(rawID)
	account.UserID = id.UserID(rawUserID)
	return account, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
