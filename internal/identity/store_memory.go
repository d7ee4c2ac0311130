package identity

import (
	"context"
	"strings"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
	"atrium/pkg/requestcontext"
)

// MemoryStore keeps identities in maps guarded by one mutex, which makes
// link-or-create trivially atomic. Used in tests and DSN-less development.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[id.UserID]User
	accounts map[string]SocialAccount // provider + "\x00" + subject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[id.UserID]User),
		accounts: make(map[string]SocialAccount),
	}
}

func accountKey(provider, subject string) string {
	return provider + "\x00" + subject
}

func (s *MemoryStore) FindOrCreateBySocial(ctx context.Context, profile Profile, siteKey id.SiteKey) (User, SocialAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	key := accountKey(profile.Provider, profile.Subject)

	if account, ok := s.accounts[key]; ok {
		account.LastLogin = now
		s.accounts[key] = account
		return s.users[account.UserID], account, false, nil
	}

	user, found := s.findByEmailLocked(profile.Email)
	created := false
	if !found {
		user = User{
			ID:          id.NewUserID(),
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			SignupSite:  siteKey,
			CreatedAt:   now,
		}
		s.users[user.ID] = user
		created = true
	}

	account := SocialAccount{
		ID:         id.NewSocialAccountID(),
		UserID:     user.ID,
		Provider:   profile.Provider,
		Subject:    profile.Subject,
		Email:      profile.Email,
		RawProfile: profile.Raw,
		LinkedAt:   now,
		LastLogin:  now,
	}
	s.accounts[key] = account
	return user, account, created, nil
}

func (s *MemoryStore) findByEmailLocked(email string) (User, bool) {
	if email == "" {
		return User{}, false
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}

func (s *MemoryStore) FindByID(_ context.Context, userID id.UserID) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return User{}, sentinel.ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) ListSocialAccounts(_ context.Context, userID id.UserID) ([]SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SocialAccount
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
