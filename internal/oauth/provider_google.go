package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google implements Provider for Google sign-in (OIDC userinfo).
type Google struct {
	base oauth2.Config
}

func NewGoogle(clientID, clientSecret string) *Google {
	return &Google{base: oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state, verifier, redirectURL string) string {
	cfg := g.base
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (g *Google) Exchange(ctx context.Context, code, verifier, redirectURL string) (*oauth2.Token, error) {
	cfg := g.base
	cfg.RedirectURL = redirectURL
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google exchange: %w", err)
	}
	return token, nil
}

func (g *Google) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	raw, err := fetchUserinfo(ctx, g.base, token, googleUserinfoURL, &info)
	if err != nil {
		return Identity{}, fmt.Errorf("google identity: %w", err)
	}
	return Identity{Subject: info.Sub, Email: info.Email, DisplayName: info.Name, Raw: raw}, nil
}
