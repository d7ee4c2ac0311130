package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/platform/config"
	"atrium/internal/session"
	"atrium/internal/site"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

type stubLoginService struct {
	authURL        string
	beginErr       error
	callbackResult CallbackResult
	callbackErr    error
	loggedOut      bool
}

func (s *stubLoginService) BeginLogin(context.Context, *site.Site, string, string) (string, error) {
	return s.authURL, s.beginErr
}

func (s *stubLoginService) HandleCallback(context.Context, *site.Site, string, string, string, string) (CallbackResult, error) {
	return s.callbackResult, s.callbackErr
}

func (s *stubLoginService) Logout(context.Context, *site.Site) {
	s.loggedOut = true
}

func newHandlerFixture(t *testing.T, svc *stubLoginService) *chi.Mux {
	t.Helper()
	sessions := session.NewManager(config.Session{SigningKey: "test-signing-key", TTL: time.Hour})
	st := &site.Site{
		Key:           "amore",
		PrimaryHost:   "amore.example",
		DefaultLocale: "en",
		Providers:     []string{"google"},
		SessionCookie: "amore_session",
		Status:        site.StatusActive,
	}
	r := chi.NewRouter()
	NewHandler(svc, sessions, st, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandlerLoginRedirectsToProvider(t *testing.T) {
	svc := &stubLoginService{authURL: "https://accounts.google.com/o/oauth2/auth?state=tok"}
	r := newHandlerFixture(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login?next=/matches", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, svc.authURL, rec.Header().Get("Location"))
}

func TestHandlerLoginErrorStatus(t *testing.T) {
	svc := &stubLoginService{beginErr: dErrors.New(dErrors.CodeForbidden, "provider not offered")}
	r := newHandlerFixture(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerCallbackSetsCookieAndRedirects(t *testing.T) {
	svc := &stubLoginService{callbackResult: CallbackResult{
		RedirectPath: "/matches",
		SessionToken: "signed-token",
		CookieName:   "amore_session",
	}}
	r := newHandlerFixture(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=tok&code=abc", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/matches", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "amore_session", cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandlerCallbackErrorRedirectsToLogin(t *testing.T) {
	svc := &stubLoginService{callbackErr: dErrors.New(dErrors.CodeUnauthorized, "login already completed")}
	r := newHandlerFixture(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=tok&code=abc", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=unauthorized", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandlerSessionAnonymous(t *testing.T) {
	r := newHandlerFixture(t, &stubLoginService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

func TestHandlerSessionAuthenticated(t *testing.T) {
	r := newHandlerFixture(t, &stubLoginService{})
	userID := id.NewUserID()
	sessionID := id.NewSessionID()

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithSessionID(ctx, sessionID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), sessionID.String())
}

func TestHandlerLogoutClearsCookie(t *testing.T) {
	svc := &stubLoginService{}
	r := newHandlerFixture(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.loggedOut)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "amore_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

var _ LoginService = (*Service)(nil)
