package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const linkedinUserinfoURL = "https://api.linkedin.com/v2/userinfo"

// LinkedIn implements Provider for LinkedIn's OIDC-flavored sign-in.
type LinkedIn struct {
	base oauth2.Config
}

func NewLinkedIn(clientID, clientSecret string) *LinkedIn {
	return &LinkedIn{base: oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.LinkedIn,
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

func (l *LinkedIn) Name() string { return "linkedin" }

func (l *LinkedIn) AuthCodeURL(state, verifier, redirectURL string) string {
	cfg := l.base
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (l *LinkedIn) Exchange(ctx context.Context, code, verifier, redirectURL string) (*oauth2.Token, error) {
	cfg := l.base
	cfg.RedirectURL = redirectURL
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("linkedin exchange: %w", err)
	}
	return token, nil
}

func (l *LinkedIn) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	raw, err := fetchUserinfo(ctx, l.base, token, linkedinUserinfoURL, &info)
	if err != nil {
		return Identity{}, fmt.Errorf("linkedin identity: %w", err)
	}
	return Identity{Subject: info.Sub, Email: info.Email, DisplayName: info.Name, Raw: raw}, nil
}
