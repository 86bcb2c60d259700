// Package session drives the screening questionnaire state machine: starting
// attempts, scoring submissions, deferring verdicts to phase boundaries, and
// finalizing outcomes.
//
// The service computes everything in memory and persists state only after a
// submission's full computation succeeded. It performs no optimistic
// concurrency control; callers serialize mutations per user with the lease
// from the lock store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"amora/internal/screening/config"
	"amora/internal/screening/metrics"
	"amora/internal/screening/ports"
	"amora/internal/screening/service/overlay"
	"amora/internal/screening/service/resolver"
	"amora/pkg/platform/audit"
	"amora/pkg/requestcontext"
)

// AuditPublisher records screening lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	cfg      *config.Config
	resolver *resolver.Service
	overlay  *overlay.Service
	states   ports.StateStore
	attempts ports.AttemptStore
	verifier ports.Verifier

	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	intn           func(n int) int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRand injects the sampling source; tests pin it for determinism.
func WithRand(intn func(n int) int) Option {
	return func(s *Service) {
		s.intn = intn
	}
}

func New(cfg *config.Config, res *resolver.Service, ovl *overlay.Service, states ports.StateStore, attempts ports.AttemptStore, verifier ports.Verifier, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("config resolver is required")
	}
	if ovl == nil {
		return nil, fmt.Errorf("rule overlay is required")
	}
	if states == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		cfg:      cfg,
		resolver: res,
		overlay:  ovl,
		states:   states,
		attempts: attempts,
		verifier: verifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("amora/screening"),
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// now uses the request-pinned clock so every decision within one request
// sees the same instant.
func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.DeviceSummary(ctx)
	return s.auditPublisher.Emit(ctx, event)
}
