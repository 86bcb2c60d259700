// Package metadata enriches the request context with correlation and client
// information consumed by logging and the attempt audit trail.
package metadata

import (
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"amora/pkg/requestcontext"
)

// Enrich assigns a request ID (honoring an inbound X-Request-ID), records the
// client IP and parses the User-Agent header into a compact device summary.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		ctx = requestcontext.WithClientIP(ctx, clientIP(r))

		if ua := r.Header.Get("User-Agent"); ua != "" {
			ctx = requestcontext.WithUserAgent(ctx, ua)
			ctx = requestcontext.WithDeviceSummary(ctx, summarize(ua))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the leftmost X-Forwarded-For entry, falling back to the
// socket peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// summarize parses a User-Agent header into "Browser version (OS)" form.
func summarize(raw string) string {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	out := name
	if version != "" {
		out += " " + version
	}
	if os := ua.OS(); os != "" {
		out += " (" + os + ")"
	}
	return out
}
