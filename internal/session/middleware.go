package session

import (
	"net/http"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	"atrium/pkg/requestcontext"
)

// Middleware resolves the site's session cookie into request context values.
// Invalid and cross-site tokens are dropped silently: the request proceeds
// anonymous, and login surfaces handle the rest.
func Middleware(manager *Manager, cookieName string, siteKey id.SiteKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := manager.Validate(cookie.Value, siteKey)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), sess.UserID)
			ctx = requestcontext.WithSessionID(ctx, sess.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.UserID(r.Context()).IsZero() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
