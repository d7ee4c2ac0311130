// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	site := requestcontext.Site(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSite(ctx, siteKey)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "atrium/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceKey      struct{}
	siteKey        struct{}
	localeKey      struct{}
	userIDKey      struct{}
	sessionIDKey   struct{}
	visitorIDKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyDevice      = deviceKey{}
	ContextKeySite        = siteKey{}
	ContextKeyLocale      = localeKey{}
	ContextKeyUserID      = userIDKey{}
	ContextKeySessionID   = sessionIDKey{}
	ContextKeyVisitorID   = visitorIDKey{}
)

// Device summarizes the requesting client as derived from its User-Agent and
// client hints. Standalone reports display-mode: standalone (an installed
// PWA), which is how duplicate OAuth callbacks usually arrive.
type Device struct {
	Browser    string
	OS         string
	Mobile     bool
	Bot        bool
	Standalone bool
}

// RequestID retrieves the request ID, or "" when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request time when one was injected, falling back to
// time.Now. Services call this instead of time.Now so tests can pin clocks.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// ClientIP retrieves the client IP, or "" when unset.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// WithClientIP injects the client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// UserAgent retrieves the raw User-Agent header value, or "" when unset.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// WithUserAgent injects the raw User-Agent into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ContextKeyUserAgent, ua)
}

// DeviceInfo retrieves the parsed device summary, or a zero Device.
func DeviceInfo(ctx context.Context) Device {
	if v, ok := ctx.Value(ContextKeyDevice).(Device); ok {
		return v
	}
	return Device{}
}

// WithDevice injects a parsed device summary into the context.
func WithDevice(ctx context.Context, d Device) context.Context {
	return context.WithValue(ctx, ContextKeyDevice, d)
}

// Site retrieves the site key resolved by host routing, or "".
func Site(ctx context.Context) id.SiteKey {
	if v, ok := ctx.Value(ContextKeySite).(id.SiteKey); ok {
		return v
	}
	return ""
}

// WithSite injects the resolved site key into the context.
func WithSite(ctx context.Context, key id.SiteKey) context.Context {
	return context.WithValue(ctx, ContextKeySite, key)
}

// Locale retrieves the negotiated locale tag ("en", "pt-BR", ...), or "".
func Locale(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyLocale).(string); ok {
		return v
	}
	return ""
}

// WithLocale injects the negotiated locale into the context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ContextKeyLocale, locale)
}

// UserID retrieves the authenticated user ID. Zero value when anonymous.
func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithUserID injects the authenticated user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// SessionID retrieves the session ID. Zero value when anonymous.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(ContextKeySessionID).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// WithSessionID injects the session ID into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// VisitorID retrieves the anonymous visitor ID. Zero value when unset.
func VisitorID(ctx context.Context) id.VisitorID {
	if v, ok := ctx.Value(ContextKeyVisitorID).(id.VisitorID); ok {
		return v
	}
	return id.VisitorID{}
}

// WithVisitorID injects the anonymous visitor ID into the context.
func WithVisitorID(ctx context.Context, visitorID id.VisitorID) context.Context {
	return context.WithValue(ctx, ContextKeyVisitorID, visitorID)
}
