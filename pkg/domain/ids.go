// Package domain holds identifier types shared across the platform.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment (a SessionID can never be passed where a UserID is
// expected). Construct them via the Parse functions at trust boundaries.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "atrium/pkg/domain-errors"
)

type (
	// UserID identifies a platform user across all sites.
	UserID uuid.UUID
	// SessionID identifies a browser session.
	SessionID uuid.UUID
	// SocialAccountID identifies a linked external identity.
	SocialAccountID uuid.UUID
	// VisitorID identifies an anonymous visitor (cookie-consent subject
	// before login).
	VisitorID uuid.UUID
)

func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id SessionID) String() string       { return uuid.UUID(id).String() }
func (id SocialAccountID) String() string { return uuid.UUID(id).String() }
func (id VisitorID) String() string       { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id VisitorID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewSocialAccountID returns a fresh random social account ID.
func NewSocialAccountID() SocialAccountID { return SocialAccountID(uuid.New()) }

// NewVisitorID returns a fresh random visitor ID.
func NewVisitorID() VisitorID { return VisitorID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID validates raw input into a UserID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseSessionID validates raw input into a SessionID.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}

// ParseVisitorID validates raw input into a VisitorID.
func ParseVisitorID(raw string) (VisitorID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return VisitorID{}, err
	}
	return VisitorID(parsed), nil
}

// SiteKey names a configured site ("amore", "bizlink", ...). It is a slug,
// not a UUID: keys appear in URLs, blob container names, and config, so they
// stay human-readable.
type SiteKey string

var siteKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)

// ParseSiteKey validates raw input into a SiteKey. Keys are lowercase slugs,
// 2-63 characters, safe for use as blob container names.
func ParseSiteKey(raw string) (SiteKey, error) {
	if !siteKeyPattern.MatchString(raw) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid site key %q", raw)
	}
	return SiteKey(raw), nil
}

func (k SiteKey) String() string { return string(k) }
