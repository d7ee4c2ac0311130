package oauth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/session"
	"atrium/internal/site"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	"atrium/pkg/requestcontext"
)

// LoginService is the slice of Service the HTTP layer needs.
type LoginService interface {
	BeginLogin(ctx context.Context, st *site.Site, providerName, next string) (string, error)
	HandleCallback(ctx context.Context, st *site.Site, providerName, stateToken, code, providerErr string) (CallbackResult, error)
	Logout(ctx context.Context, st *site.Site)
}

// Handler exposes the browser-facing login endpoints for one site.
type Handler struct {
	service  LoginService
	sessions *session.Manager
	site     *site.Site
	logger   *slog.Logger
}

// NewHandler builds the login handler for a single site. The dispatcher
// constructs one per configured site.
func NewHandler(service LoginService, sessions *session.Manager, st *site.Site, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		site:     st,
		logger:   logger,
	}
}

// Register mounts the auth routes on the site router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/{provider}/login", h.handleLogin)
	r.Get("/auth/{provider}/callback", h.handleCallback)
	r.Get("/auth/session", h.handleSession)
	r.Post("/auth/logout", h.handleLogout)
}

// handleLogin starts the flow: create the pending state and bounce the
// browser to the provider.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")

	authURL, err := h.service.BeginLogin(ctx, h.site, provider, r.URL.Query().Get("next"))
	if err != nil {
		h.logger.WarnContext(ctx, "begin login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"site", h.site.Key,
			"provider", provider,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// handleCallback is the endpoint duplicate PWA callbacks hammer. All error
// paths redirect back to the login page rather than rendering JSON; the
// browser is mid-navigation and a JSON body would strand the user.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	result, err := h.service.HandleCallback(ctx, h.site, provider,
		q.Get("state"), q.Get("code"), q.Get("error"))
	if err != nil {
		h.logger.WarnContext(ctx, "callback failed",
			"request_id", requestcontext.RequestID(ctx),
			"site", h.site.Key,
			"provider", provider,
			"error", err.Error(),
		)
		http.Redirect(w, r, "/login?error="+string(dErrors.CodeOf(err)), http.StatusSeeOther)
		return
	}

	if result.SessionToken != "" {
		http.SetCookie(w, h.sessions.Cookie(result.CookieName, result.SessionToken))
	}
	http.Redirect(w, r, result.RedirectPath, http.StatusSeeOther)
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// handleSession lets the PWA shell re-check its login state after the
// callback redirect chain settles.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		UserID:        userID.String(),
		SessionID:     requestcontext.SessionID(ctx).String(),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.service.Logout(ctx, h.site)
	http.SetCookie(w, h.sessions.ClearCookie(h.site.SessionCookie))
	w.WriteHeader(http.StatusNoContent)
}
