// Package identity owns platform users and their linked external accounts.
// A user is shared across all sites; the social account rows record which
// provider identities map onto them.
package identity

import (
	"encoding/json"
	"time"

	id "atrium/pkg/domain"
)

// User is one person across the whole platform.
type User struct {
	ID          id.UserID
	Email       string
	DisplayName string
	SignupSite  id.SiteKey
	CreatedAt   time.Time
}

// SocialAccount links a provider identity to a user. (provider, subject) is
// globally unique: a provider subject belongs to exactly one user, ever.
type SocialAccount struct {
	ID         id.SocialAccountID
	UserID     id.UserID
	Provider   string
	Subject    string
	Email      string
	RawProfile json.RawMessage
	LinkedAt   time.Time
	LastLogin  time.Time
}

// Profile is what a provider reports about the person logging in.
type Profile struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
	Raw         json.RawMessage
}
