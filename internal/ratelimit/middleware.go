package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"atrium/pkg/platform/httputil"
	"atrium/pkg/requestcontext"
)

// Middleware throttles requests per client IP. On a store error the request
// passes: a broken cache must not take the login flow down with it.
func Middleware(limiter *Limiter, logger *slog.Logger, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = r.RemoteAddr
			}

			result, err := limiter.Allow(ctx, "ip:"+ip)
			if err != nil {
				logger.WarnContext(ctx, "rate limit store unavailable, failing open",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retryAfter := time.Until(result.ResetAt).Seconds()
				if retryAfter < 1 {
					retryAfter = 1
				}
				httputil.WriteRetryAfter(w, strconv.Itoa(int(retryAfter)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
