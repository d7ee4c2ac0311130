package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atrium/internal/audit"
	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/oauthstate"
	"atrium/internal/platform/config"
	"atrium/internal/replayguard"
	"atrium/internal/session"
	"atrium/internal/site"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *captureAuditor) Record(_ context.Context, event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *captureAuditor) byKind(kind audit.Kind) []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Event
	for _, e := range a.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type captureMailer struct {
	mu   sync.Mutex
	sent []email.WelcomeData
}

func (m *captureMailer) SendWelcome(_ string, _ id.SiteKey, _ string, data email.WelcomeData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type ServiceSuite struct {
	suite.Suite

	states  *oauthstate.MemoryStore
	ids     *identity.MemoryStore
	fake    *Fake
	auditor *captureAuditor
	mailer  *captureMailer
	service *Service
	site    *site.Site
}

func (s *ServiceSuite) SetupTest() {
	s.states = oauthstate.NewMemoryStore()
	s.ids = identity.NewMemoryStore()
	s.fake = NewFake("google")
	s.auditor = &captureAuditor{}
	s.mailer = &captureMailer{}
	s.site = &site.Site{
		Key:           "amore",
		DisplayName:   "Amore",
		PrimaryHost:   "amore.example",
		DefaultLocale: "en",
		Locales:       []string{"en", "it"},
		Providers:     []string{"google", "facebook"},
		SessionCookie: "amore_session",
		Status:        site.StatusActive,
	}

	guard := replayguard.New(
		replayguard.NewMemoryLocker(),
		replayguard.NewMemorySlots(),
		replayguard.Config{
			LockTTL:      5 * time.Second,
			WaitBudget:   2 * time.Second,
			PollInterval: 10 * time.Millisecond,
			SlotTTL:      30 * time.Second,
		},
		nil,
	)
	sessions := session.NewManager(config.Session{
		SigningKey: "test-signing-key",
		TTL:        time.Hour,
	})

	s.service = NewService(
		NewRegistry(s.fake),
		s.states,
		guard,
		s.ids,
		sessions,
		s.auditor,
		s.mailer,
		slog.New(slog.DiscardHandler),
		nil,
		10*time.Minute,
		"",
	)
}

// beginLogin runs BeginLogin and extracts the state token from the provider
// redirect URL.
func (s *ServiceSuite) beginLogin(next string) string {
	authURL, err := s.service.BeginLogin(context.Background(), s.site, "google", next)
	s.Require().NoError(err)

	parsed, err := url.Parse(authURL)
	s.Require().NoError(err)
	token := parsed.Query().Get("state")
	s.Require().NotEmpty(token)
	return token
}

func (s *ServiceSuite) TestBeginLoginBuildsProviderURL() {
	authURL, err := s.service.BeginLogin(context.Background(), s.site, "google", "/matches")
	s.Require().NoError(err)

	parsed, err := url.Parse(authURL)
	s.Require().NoError(err)
	q := parsed.Query()
	s.NotEmpty(q.Get("state"))
	s.Equal("https://amore.example/auth/google/callback", q.Get("redirect_uri"))
}

func (s *ServiceSuite) TestBeginLoginUnknownProvider() {
	// facebook is on the site's provider list but the gateway has no
	// credentials registered for it.
	_, err := s.service.BeginLogin(context.Background(), s.site, "facebook", "/")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestBeginLoginProviderNotOnSite() {
	_, err := s.service.BeginLogin(context.Background(), s.site, "github", "/")
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestBeginLoginDisabledProvider() {
	// facebook is enabled on the site but not registered; linkedin is the
	// reverse. A provider the site does not offer is forbidden even when the
	// gateway knows it.
	s.site.Providers = []string{"facebook"}
	_, err := s.service.BeginLogin(context.Background(), s.site, "google", "/")
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestBeginLoginRejectsAbsoluteNext() {
	for _, next := range []string{"https://evil.example/", "//evil.example", "javascript:alert(1)"} {
		_, err := s.service.BeginLogin(context.Background(), s.site, "google", next)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest), "next=%q", next)
	}
}

func (s *ServiceSuite) TestCallbackHappyPath() {
	token := s.beginLogin("/matches")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com", DisplayName: "Ada"})

	result, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.Require().NoError(err)

	s.Equal("/matches", result.RedirectPath)
	s.Equal("amore_session", result.CookieName)
	s.NotEmpty(result.SessionToken)
	s.False(result.Piggybacked)
	s.Equal(1, s.fake.Exchanges())
	s.Len(s.auditor.byKind(audit.KindLoginSucceeded), 1)
	s.Equal(1, s.mailer.count())
}

func (s *ServiceSuite) TestWelcomeMailOnlyOnFirstSignup() {
	token := s.beginLogin("/")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})
	_, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.Require().NoError(err)

	token = s.beginLogin("/")
	s.fake.Mint("code-2", Identity{Subject: "sub-1", Email: "ada@example.com"})
	_, err = s.service.HandleCallback(context.Background(), s.site, "google", token, "code-2", "")
	s.Require().NoError(err)

	s.Equal(1, s.mailer.count())
}

// TestConcurrentDuplicateCallbacks is the core guarantee: a burst of
// identical callbacks redeems the code exactly once, and every caller still
// walks away logged in.
func (s *ServiceSuite) TestConcurrentDuplicateCallbacks() {
	token := s.beginLogin("/matches")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})
	// Hold the winner inside the exchange long enough for every duplicate to
	// reach the guard; without this the burst degenerates into sequential
	// calls and the late ones hit the already-consumed state instead.
	s.fake.DelayExchange(200 * time.Millisecond)

	const callers = 16
	results := make([]CallbackResult, callers)
	errs := make([]error, callers)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = s.service.HandleCallback(
				context.Background(), s.site, "google", token, "code-1", "")
		}(i)
	}
	close(start)
	wg.Wait()

	s.Equal(1, s.fake.Exchanges(), "code must be redeemed exactly once")

	primaries := 0
	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i], "caller %d", i)
		s.Equal("/matches", results[i].RedirectPath)
		s.NotEmpty(results[i].SessionToken)
		if !results[i].Piggybacked {
			primaries++
		}
	}
	s.Equal(1, primaries)
	s.Len(s.auditor.byKind(audit.KindLoginSucceeded), 1)
	s.Len(s.auditor.byKind(audit.KindLoginReplayed), callers-1)
	s.Equal(1, s.mailer.count())
}

func (s *ServiceSuite) TestSequentialDuplicateRejected() {
	token := s.beginLogin("/")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})

	_, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.Require().NoError(err)

	// A replay arriving after the primary released the claim re-runs the
	// exchange and hits the consumed state row.
	_, err = s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Equal(1, s.fake.Exchanges())
}

func (s *ServiceSuite) TestFailedExchangeReleasesState() {
	token := s.beginLogin("/")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})
	s.fake.FailNextExchange(errors.New("provider down"))

	_, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	// The claim was released, so the retry with a fresh code succeeds.
	s.fake.Mint("code-2", Identity{Subject: "sub-1", Email: "ada@example.com"})
	result, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-2", "")
	s.Require().NoError(err)
	s.NotEmpty(result.SessionToken)
}

func (s *ServiceSuite) TestCrossSiteStateRejected() {
	token := s.beginLogin("/")
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})

	other := &site.Site{
		Key:           "bizlink",
		DisplayName:   "BizLink",
		PrimaryHost:   "bizlink.example",
		DefaultLocale: "en",
		Providers:     []string{"google"},
		SessionCookie: "bizlink_session",
		Status:        site.StatusActive,
	}
	_, err := s.service.HandleCallback(context.Background(), other, "google", token, "code-1", "")
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestProviderMismatchRejected() {
	s.site.Providers = append(s.site.Providers, "linkedin")
	linkedin := NewFake("linkedin")
	s.service.providers = NewRegistry(s.fake, linkedin)

	token := s.beginLogin("/")
	linkedin.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})

	_, err := s.service.HandleCallback(context.Background(), s.site, "linkedin", token, "code-1", "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestExpiredStateRejected() {
	token := oauthstate.NewToken()
	created := time.Now().Add(-time.Hour)
	s.Require().NoError(s.states.Create(context.Background(), oauthstate.State{
		Token:        token,
		SiteKey:      s.site.Key,
		Provider:     "google",
		CodeVerifier: "verifier",
		ReturnPath:   "/",
		CreatedAt:    created,
		ExpiresAt:    created.Add(10 * time.Minute),
	}))
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})

	_, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Zero(s.fake.Exchanges())
	s.Len(s.auditor.byKind(audit.KindStateExpired), 1)
}

func (s *ServiceSuite) TestProviderErrorRedirectsWithoutConsuming() {
	token := s.beginLogin("/")

	result, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "", "access_denied")
	s.Require().NoError(err)
	s.True(strings.HasPrefix(result.RedirectPath, "/login?error="))
	s.Empty(result.SessionToken)

	failed := s.auditor.byKind(audit.KindLoginFailed)
	s.Require().Len(failed, 1)
	s.Equal("provider:access_denied", failed[0].Reason)

	// The state is untouched and a real callback can still complete.
	s.fake.Mint("code-1", Identity{Subject: "sub-1", Email: "ada@example.com"})
	_, err = s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.NoError(err)
}

func (s *ServiceSuite) TestMissingEmailRejected() {
	token := s.beginLogin("/")
	s.fake.Mint("code-1", Identity{Subject: "sub-1"})

	_, err := s.service.HandleCallback(context.Background(), s.site, "google", token, "code-1", "")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestCleanupExpiredStates() {
	ctx := context.Background()
	created := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.states.Create(ctx, oauthstate.State{
			Token:        oauthstate.NewToken(),
			SiteKey:      s.site.Key,
			Provider:     "google",
			CodeVerifier: "verifier",
			ReturnPath:   "/",
			CreatedAt:    created,
			ExpiresAt:    created.Add(time.Minute),
		}))
	}
	s.beginLogin("/")

	removed, err := s.service.CleanupExpiredStates(ctx)
	s.Require().NoError(err)
	s.Equal(3, removed)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
