package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"golang.org/x/oauth2"

	"atrium/internal/audit"
	"atrium/internal/email"
	"atrium/internal/identity"
	"atrium/internal/oauthstate"
	"atrium/internal/replayguard"
	"atrium/internal/session"
	"atrium/internal/site"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
	"atrium/pkg/requestcontext"
)

// Auditor records login trail events without blocking.
type Auditor interface {
	Record(ctx context.Context, event audit.Event)
}

// WelcomeMailer sends the first-signup mail, best-effort.
type WelcomeMailer interface {
	SendWelcome(to string, siteKey id.SiteKey, locale string, data email.WelcomeData)
}

// Service orchestrates the social login flows. HandleCallback runs under the
// replay guard; everything else is a straight line.
type Service struct {
	providers  *Registry
	states     oauthstate.Store
	guard      *replayguard.Guard
	identities identity.Store
	sessions   *session.Manager
	auditor    Auditor
	mailer     WelcomeMailer
	logger     *slog.Logger
	metrics    *Metrics

	stateTTL     time.Duration
	callbackBase string
}

// NewService wires the login flow. callbackBase overrides the per-site
// https://<primary-host> callback origin, which local development needs.
func NewService(
	providers *Registry,
	states oauthstate.Store,
	guard *replayguard.Guard,
	identities identity.Store,
	sessions *session.Manager,
	auditor Auditor,
	mailer WelcomeMailer,
	logger *slog.Logger,
	metrics *Metrics,
	stateTTL time.Duration,
	callbackBase string,
) *Service {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &Service{
		providers:    providers,
		states:       states,
		guard:        guard,
		identities:   identities,
		sessions:     sessions,
		auditor:      auditor,
		mailer:       mailer,
		logger:       logger,
		metrics:      metrics,
		stateTTL:     stateTTL,
		callbackBase: callbackBase,
	}
}

// BeginLogin creates the pending state row and returns the provider redirect
// URL.
func (s *Service) BeginLogin(ctx context.Context, st *site.Site, providerName, next string) (string, error) {
	provider, err := s.resolveProvider(st, providerName)
	if err != nil {
		return "", err
	}

	next, err = sanitizeReturnPath(next)
	if err != nil {
		return "", err
	}

	now := requestcontext.Now(ctx)
	verifier := oauth2.GenerateVerifier()
	state := oauthstate.State{
		Token:        oauthstate.NewToken(),
		SiteKey:      st.Key,
		Provider:     providerName,
		CodeVerifier: verifier,
		ReturnPath:   next,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.stateTTL),
	}
	if err := s.states.Create(ctx, state); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not start login")
	}

	s.metrics.started(st.Key.String(), providerName)
	return provider.AuthCodeURL(state.Token, verifier, s.redirectURL(st, providerName)), nil
}

// CallbackResult is what the HTTP layer turns into a cookie and a redirect.
type CallbackResult struct {
	RedirectPath string
	SessionToken string
	CookieName   string
	Piggybacked  bool
}

// HandleCallback consumes the state, redeems the code, and ends with a
// session. The code is redeemed at most once per state token, however many
// duplicate callbacks arrive.
func (s *Service) HandleCallback(ctx context.Context, st *site.Site, providerName, stateToken, code, providerErr string) (CallbackResult, error) {
	if providerErr != "" {
		// The user canceled or the provider refused; no code was issued, so
		// nothing was consumed and the attempt can simply be retried.
		s.auditor.Record(ctx, audit.Event{
			Kind: audit.KindLoginFailed, SiteKey: st.Key, Provider: providerName,
			Reason: "provider:" + providerErr,
		})
		s.metrics.failed(st.Key.String(), providerName, "provider_error")
		return CallbackResult{RedirectPath: "/login?error=provider_denied"}, nil
	}

	if stateToken == "" || code == "" {
		return CallbackResult{}, dErrors.New(dErrors.CodeBadRequest, "state and code are required")
	}
	provider, err := s.resolveProvider(st, providerName)
	if err != nil {
		return CallbackResult{}, err
	}

	outcome, primary, err := s.guard.Do(ctx, stateToken, func(ctx context.Context) (replayguard.Outcome, error) {
		return s.exchange(ctx, st, provider, stateToken, code)
	})
	if err != nil {
		s.metrics.failed(st.Key.String(), providerName, string(dErrors.CodeOf(err)))
		return CallbackResult{}, err
	}

	userID, err := id.ParseUserID(outcome.UserID)
	if err != nil {
		return CallbackResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt login outcome")
	}

	// Both the primary and piggybacking duplicates get their own session;
	// issuing a second session for the same user is harmless, re-running the
	// code exchange is not.
	token, _, err := s.sessions.Issue(userID, st.Key, requestcontext.Now(ctx))
	if err != nil {
		return CallbackResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue session")
	}

	if !primary {
		s.auditor.Record(ctx, audit.Event{
			Kind: audit.KindLoginReplayed, SiteKey: st.Key, Provider: providerName,
			UserID: outcome.UserID,
		})
		s.metrics.replayed(st.Key.String(), providerName)
	}

	return CallbackResult{
		RedirectPath: outcome.Redirect,
		SessionToken: token,
		CookieName:   st.SessionCookie,
		Piggybacked:  !primary,
	}, nil
}

// exchange is the guarded critical section: claim the state, redeem the
// code, resolve the identity. Any failure after the claim releases it so a
// legitimate retry is not permanently blocked.
func (s *Service) exchange(ctx context.Context, st *site.Site, provider Provider, stateToken, code string) (replayguard.Outcome, error) {
	now := requestcontext.Now(ctx)

	state, err := s.states.Consume(ctx, stateToken, now)
	if err != nil {
		return replayguard.Outcome{}, s.consumeError(ctx, st, provider.Name(), err)
	}

	fail := func(reason string, cause error, code dErrors.Code) (replayguard.Outcome, error) {
		if releaseErr := s.states.Release(ctx, stateToken); releaseErr != nil {
			s.logger.ErrorContext(ctx, "release oauth state failed",
				"site", st.Key.String(), "error", releaseErr.Error())
		}
		s.auditor.Record(ctx, audit.Event{
			Kind: audit.KindLoginFailed, SiteKey: st.Key, Provider: provider.Name(),
			Reason: reason,
		})
		s.metrics.failed(st.Key.String(), provider.Name(), reason)
		return replayguard.Outcome{}, dErrors.Wrap(cause, code, "login failed")
	}

	if state.SiteKey != st.Key {
		return fail("cross_site_state", fmt.Errorf("state for site %s presented on %s", state.SiteKey, st.Key), dErrors.CodeForbidden)
	}
	if state.Provider != provider.Name() {
		return fail("provider_mismatch", fmt.Errorf("state for provider %s presented to %s", state.Provider, provider.Name()), dErrors.CodeBadRequest)
	}

	token, err := provider.Exchange(ctx, code, state.CodeVerifier, s.redirectURL(st, provider.Name()))
	if err != nil {
		return fail("exchange_failed", err, dErrors.CodeUnauthorized)
	}

	ident, err := provider.FetchIdentity(ctx, token)
	if err != nil {
		return fail("identity_fetch_failed", err, dErrors.CodeUnauthorized)
	}
	if ident.Subject == "" {
		return fail("missing_subject", fmt.Errorf("provider returned empty subject"), dErrors.CodeUnauthorized)
	}
	if ident.Email == "" {
		return fail("missing_email", fmt.Errorf("provider returned no email"), dErrors.CodeUnauthorized)
	}

	user, _, createdUser, err := s.identities.FindOrCreateBySocial(ctx, identity.Profile{
		Provider:    provider.Name(),
		Subject:     ident.Subject,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Raw:         ident.Raw,
	}, st.Key)
	if err != nil {
		return fail("identity_store_failed", err, dErrors.CodeInternal)
	}

	if createdUser {
		locale := requestcontext.Locale(ctx)
		if locale == "" {
			locale = st.DefaultLocale
		}
		s.mailer.SendWelcome(user.Email, st.Key, locale, email.WelcomeData{
			DisplayName: user.DisplayName,
			SiteName:    st.DisplayName,
		})
	}

	s.auditor.Record(ctx, audit.Event{
		Kind: audit.KindLoginSucceeded, SiteKey: st.Key, Provider: provider.Name(),
		UserID: user.ID.String(),
	})
	s.metrics.succeeded(st.Key.String(), provider.Name())

	return replayguard.Outcome{
		UserID:   user.ID.String(),
		Redirect: state.ReturnPath,
	}, nil
}

func (s *Service) consumeError(ctx context.Context, st *site.Site, providerName string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrExpired):
		s.auditor.Record(ctx, audit.Event{
			Kind: audit.KindStateExpired, SiteKey: st.Key, Provider: providerName,
		})
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "login attempt expired, please retry")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		// The previous winner's result slot has already expired; the code is
		// gone for good. The client recovers by checking its session.
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "login already completed")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "unknown login attempt")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify login attempt")
	}
}

// Logout records the event; clearing the cookie is the HTTP layer's job.
func (s *Service) Logout(ctx context.Context, st *site.Site) {
	s.auditor.Record(ctx, audit.Event{
		Kind:    audit.KindLogout,
		SiteKey: st.Key,
		UserID:  requestcontext.UserID(ctx).String(),
	})
}

// CleanupExpiredStates sweeps stale rows; the server runs it periodically.
func (s *Service) CleanupExpiredStates(ctx context.Context) (int, error) {
	return s.states.DeleteExpired(ctx, requestcontext.Now(ctx))
}

func (s *Service) resolveProvider(st *site.Site, providerName string) (Provider, error) {
	if !st.ProviderEnabled(providerName) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "%s login is not offered on this site", providerName)
	}
	provider, ok := s.providers.Get(providerName)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown provider %q", providerName)
	}
	return provider, nil
}

func (s *Service) redirectURL(st *site.Site, providerName string) string {
	base := s.callbackBase
	if base == "" {
		base = "https://" + st.PrimaryHost
	}
	return strings.TrimSuffix(base, "/") + "/auth/" + providerName + "/callback"
}

// sanitizeReturnPath keeps post-login redirects on-site.
func sanitizeReturnPath(next string) (string, error) {
	if next == "" {
		return "/", nil
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || !govalidator.IsRequestURI(next) {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid return path %q", next)
	}
	return next, nil
}
