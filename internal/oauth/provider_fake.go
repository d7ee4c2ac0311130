package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Fake is a deterministic in-process Provider for tests and local
// development. Exchange honors real one-time-code semantics: a code issued
// by Mint can be redeemed exactly once, which is what the replay guard tests
// lean on.
type Fake struct {
	name string

	mu        sync.Mutex
	codes     map[string]Identity // unredeemed codes
	failNext  error
	delay     time.Duration
	exchanges int
}

func NewFake(name string) *Fake {
	return &Fake{name: name, codes: make(map[string]Identity)}
}

func (f *Fake) Name() string { return f.name }

// Mint registers a one-time code that will resolve to the given identity.
func (f *Fake) Mint(code string, ident Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = ident
}

// FailNextExchange makes the next Exchange return err.
func (f *Fake) FailNextExchange(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = err
}

// DelayExchange makes every Exchange sleep first. Concurrency tests use it
// to hold the winning caller inside the critical section while the
// duplicates arrive.
func (f *Fake) DelayExchange(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Exchanges reports how many exchange attempts reached the provider.
func (f *Fake) Exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges
}

func (f *Fake) AuthCodeURL(state, verifier, redirectURL string) string {
	return "https://fake.example/authorize?state=" + url.QueryEscape(state) +
		"&redirect_uri=" + url.QueryEscape(redirectURL)
}

func (f *Fake) Exchange(_ context.Context, code, _, _ string) (*oauth2.Token, error) {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.exchanges++
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}

	ident, ok := f.codes[code]
	if !ok {
		return nil, fmt.Errorf("fake provider: code %q already redeemed or unknown", code)
	}
	delete(f.codes, code)

	payload, _ := json.Marshal(ident)
	return &oauth2.Token{AccessToken: string(payload), TokenType: "Bearer"}, nil
}

func (f *Fake) FetchIdentity(_ context.Context, token *oauth2.Token) (Identity, error) {
	var ident Identity
	if err := json.Unmarshal([]byte(token.AccessToken), &ident); err != nil {
		return Identity{}, fmt.Errorf("fake provider: bad token: %w", err)
	}
	return ident, nil
}
