// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and handlers read them. Keeping the
// package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithUserID(ctx, userID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "amora/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey        struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	deviceSummaryKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyUserID        = userIDKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
	ContextKeyClientIP      = clientIPKey{}
	ContextKeyUserAgent     = userAgentKey{}
	ContextKeyDeviceSummary = deviceSummaryKey{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// RequestID retrieves the correlation ID assigned by middleware.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request arrival time when set, falling back to time.Now.
// Injecting a fixed time keeps time-dependent logic deterministic in tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// ClientIP retrieves the client IP recorded by metadata middleware.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects a client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// UserAgent retrieves the raw User-Agent header value.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithUserAgent injects a raw user agent string into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ContextKeyUserAgent, ua)
}

// DeviceSummary retrieves the parsed "browser/os" device summary.
func DeviceSummary(ctx context.Context) string {
	if d, ok := ctx.Value(ContextKeyDeviceSummary).(string); ok {
		return d
	}
	return ""
}

// WithDeviceSummary injects a parsed device summary into the context.
func WithDeviceSummary(ctx context.Context, d string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceSummary, d)
}
