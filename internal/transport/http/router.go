// Package httptransport assembles the public HTTP surface: the middleware
// chain, the versioned API routes and the health endpoint. Metrics are served
// on their own listener by main.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	screeninghandler "amora/internal/screening/handler"
	"amora/pkg/platform/httputil"
	"amora/pkg/platform/middleware/auth"
	"amora/pkg/platform/middleware/metadata"
	"amora/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Screening     *screeninghandler.Handler
	JWTSigningKey string
	Logger        *slog.Logger

	// Health reports readiness of backing stores; nil means always ready.
	Health func(ctx context.Context) error
}

// NewRouter builds the chi router. All /v1 routes require a bearer token;
// the health endpoint is unauthenticated.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.Enrich)
	r.Use(requesttime.Capture)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Health(ctx); err != nil {
				deps.Logger.ErrorContext(ctx, "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireUser(deps.JWTSigningKey, deps.Logger))
		deps.Screening.Register(r)
	})

	return r
}
