// Package session issues and validates the browser session JWTs each site
// sets after a social login. The cookie is the PWA's recovery path: a client
// whose duplicate callback lost the race re-checks /auth/session and finds
// itself already logged in.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"atrium/internal/platform/config"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Claims is the session JWT payload. The site key is embedded so a cookie
// replayed against another site's host fails validation.
type Claims struct {
	jwt.RegisteredClaims
	SiteKey   string `json:"site"`
	SessionID string `json:"sid"`
}

// Session is a validated browser session.
type Session struct {
	UserID    id.UserID
	SessionID id.SessionID
	SiteKey   id.SiteKey
	ExpiresAt time.Time
}

// Manager signs and verifies session tokens.
type Manager struct {
	key    []byte
	ttl    time.Duration
	secure bool
}

func NewManager(cfg config.Session) *Manager {
	return &Manager{
		key:    []byte(cfg.SigningKey),
		ttl:    cfg.TTL,
		secure: cfg.Secure,
	}
}

// Issue mints a session token bound to the given site.
func (m *Manager) Issue(userID id.UserID, siteKey id.SiteKey, now time.Time) (string, id.SessionID, error) {
	sessionID := id.NewSessionID()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "atrium",
		},
		SiteKey:   siteKey.String(),
		SessionID: sessionID.String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", id.SessionID{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, sessionID, nil
}

// Validate parses a token and checks it belongs to the given site. Expired,
// forged, and cross-site tokens all come back CodeUnauthorized.
func (m *Manager) Validate(token string, siteKey id.SiteKey) (Session, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Session{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid session")
	}
	if claims.SiteKey != siteKey.String() {
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "session belongs to another site")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid session subject")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid session id")
	}

	return Session{
		UserID:    userID,
		SessionID: sessionID,
		SiteKey:   siteKey,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Cookie wraps a signed token in the per-site session cookie.
func (m *Manager) Cookie(name, token string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the per-site session cookie.
func (m *Manager) ClearCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
