package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/hostrouter"

	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	"atrium/pkg/requestcontext"
)

// RouterBuilder produces the chi router serving one site. The gateway calls
// it once per site at startup.
type RouterBuilder func(s *Site) chi.Router

// NewDispatcher mounts one router per configured host on a hostrouter and
// returns the host-dispatching handler. Unknown hosts land on the default
// site's router; disabled sites answer 503 on all their hosts.
func NewDispatcher(registry *Registry, build RouterBuilder) http.Handler {
	hr := hostrouter.New()

	for _, s := range registry.All() {
		var router chi.Router
		if s.Status == StatusDisabled {
			router = disabledRouter(s)
		} else {
			router = build(s)
		}
		for _, host := range s.Hosts() {
			hr.Map(NormalizeHost(host), router)
		}
		if s.Key == registry.Default().Key {
			hr.Map("*", router)
		}
	}

	// hostrouter matches on the exact Host header; normalize it first so
	// ports and case never bypass the table.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Host = NormalizeHost(r.Host)
		hr.ServeHTTP(w, r)
	})
}

// Middleware stamps the site key into the request context and attaches the
// site's pre-rendered security headers.
func Middleware(registry *Registry, s *Site) func(http.Handler) http.Handler {
	headers := registry.SecurityHeaders(s.Key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", headers.CSP)
			h.Set("Referrer-Policy", headers.ReferrerPolicy)
			h.Set("X-Content-Type-Options", headers.ContentType)
			h.Set("X-Frame-Options", headers.FrameOptions)

			ctx := requestcontext.WithSite(r.Context(), s.Key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func disabledRouter(s *Site) chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeUnavailable, "%s is temporarily unavailable", s.DisplayName))
	})
	return r
}
