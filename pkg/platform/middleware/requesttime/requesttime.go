// Package requesttime pins a single observation of "now" per request so all
// downstream time arithmetic within one submission agrees.
package requesttime

import (
	"net/http"
	"time"

	"amora/pkg/requestcontext"
)

// Capture records the request arrival time in the context.
func Capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
