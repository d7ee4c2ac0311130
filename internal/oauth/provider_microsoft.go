package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const microsoftUserinfoURL = "https://graph.microsoft.com/oidc/userinfo"

// Microsoft implements Provider for Microsoft accounts via Azure AD.
type Microsoft struct {
	base oauth2.Config
}

// NewMicrosoft builds the provider. tenant is the Azure AD tenant; "common"
// accepts any Microsoft account.
func NewMicrosoft(clientID, clientSecret, tenant string) *Microsoft {
	return &Microsoft{base: oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.AzureAD(tenant),
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

func (m *Microsoft) Name() string { return "microsoft" }

func (m *Microsoft) AuthCodeURL(state, verifier, redirectURL string) string {
	cfg := m.base
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (m *Microsoft) Exchange(ctx context.Context, code, verifier, redirectURL string) (*oauth2.Token, error) {
	cfg := m.base
	cfg.RedirectURL = redirectURL
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("microsoft exchange: %w", err)
	}
	return token, nil
}

func (m *Microsoft) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	raw, err := fetchUserinfo(ctx, m.base, token, microsoftUserinfoURL, &info)
	if err != nil {
		return Identity{}, fmt.Errorf("microsoft identity: %w", err)
	}
	return Identity{Subject: info.Sub, Email: info.Email, DisplayName: info.Name, Raw: raw}, nil
}
