package consent

import (
	"net/http"
	"time"

	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

// VisitorCookieName holds the anonymous visitor ID that keys consent for
// subjects who never log in.
const VisitorCookieName = "atrium_vid"

const visitorCookieTTL = 365 * 24 * time.Hour

// VisitorMiddleware reads the visitor cookie, minting one on first sight,
// and exposes the ID through the request context. Logged-in users carry a
// visitor ID too; Subject prefers the user ID.
func VisitorMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var visitorID id.VisitorID
			if c, err := r.Cookie(VisitorCookieName); err == nil {
				visitorID, _ = id.ParseVisitorID(c.Value)
			}
			if visitorID.IsZero() {
				visitorID = id.NewVisitorID()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    visitorID.String(),
					Path:     "/",
					MaxAge:   int(visitorCookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithVisitorID(r.Context(), visitorID)))
		})
	}
}
