// Package oauth implements the social login flows every site shares: the
// redirect to a provider, the replay-guarded callback, and the session that
// comes out the other end.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Identity is what a provider reports about the person who just authorized.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	Raw         json.RawMessage
}

// Provider is the capability surface one OAuth provider must implement.
// Variants are concrete types registered at startup; nothing dispatches on
// provider strings at runtime beyond the registry lookup.
type Provider interface {
	Name() string
	// AuthCodeURL builds the provider redirect carrying the state token and
	// a PKCE S256 challenge derived from verifier.
	AuthCodeURL(state, verifier, redirectURL string) string
	// Exchange redeems the one-time authorization code. This is the
	// side-effecting call the replay guard protects: a code survives exactly
	// one redemption.
	Exchange(ctx context.Context, code, verifier, redirectURL string) (*oauth2.Token, error)
	// FetchIdentity resolves the token into the provider's view of the user.
	FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error)
}

// Registry holds the providers configured at startup.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or false when it is not configured.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the configured provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// fetchUserinfo GETs a userinfo endpoint with the token applied and decodes
// the JSON body into dst, returning the raw payload for the social account
// record.
func fetchUserinfo(ctx context.Context, cfg oauth2.Config, token *oauth2.Token, url string, dst any) (json.RawMessage, error) {
	resp, err := cfg.Client(ctx, token).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return body, nil
}
