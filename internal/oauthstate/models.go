// Package oauthstate persists one row per initiated social login. The state
// token rides the OAuth round-trip as the `state` parameter and is consumed
// exactly once on callback: the conditional-update claim in the stores is
// what lets two racing callback requests agree on a single winner.
package oauthstate

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	id "atrium/pkg/domain"
)

// State is one pending login.
type State struct {
	Token        string
	SiteKey      id.SiteKey
	Provider     string
	CodeVerifier string
	ReturnPath   string
	Nonce        string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
}

// Expired reports whether the state can no longer be consumed.
func (s State) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewToken returns a fresh 43-character URL-safe state token (256 bits).
func NewToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("oauthstate: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
