package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"atrium/pkg/requestcontext"
)

// Metadata extracts the client IP, User-Agent, and a parsed device summary
// into the request context. The Sec-Fetch/display-mode hint marks installed
// PWAs, which is where duplicate OAuth callbacks come from in practice.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))

		raw := r.UserAgent()
		ctx = requestcontext.WithUserAgent(ctx, raw)

		ua := useragent.New(raw)
		browser, _ := ua.Browser()
		ctx = requestcontext.WithDevice(ctx, requestcontext.Device{
			Browser:    browser,
			OS:         ua.OS(),
			Mobile:     ua.Mobile(),
			Bot:        ua.Bot(),
			Standalone: r.Header.Get("X-Display-Mode") == "standalone",
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the leftmost X-Forwarded-For hop, falling back to the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
