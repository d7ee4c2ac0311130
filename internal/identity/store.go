package identity

import (
	"context"

	id "atrium/pkg/domain"
)

// Store persists users and social accounts.
//
// FindOrCreateBySocial resolves a provider profile to a user atomically:
//   - an existing (provider, subject) pair always wins, regardless of what
//     email the provider reports today;
//   - otherwise a user with the same email (case-insensitive) gets a second
//     social account linked;
//   - otherwise a new user is created.
//
// The createdUser flag reports a first-ever signup, which is what triggers
// the welcome email.
type Store interface {
	FindOrCreateBySocial(ctx context.Context, profile Profile, siteKey id.SiteKey) (User, SocialAccount, bool, error)
	FindByID(ctx context.Context, userID id.UserID) (User, error)
	ListSocialAccounts(ctx context.Context, userID id.UserID) ([]SocialAccount, error)
}
