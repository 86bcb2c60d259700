// Package publisher provides the synchronous audit publisher used by domain
// services. Screening verdicts are compliance events: the caller blocks until
// the outbox write succeeds, and a failed write fails the operation.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "amora/pkg/platform/audit"

	id "amora/pkg/domain"
)

// Publisher emits audit events with fail-closed semantics.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a synchronous publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes the event to the audit store. Returns an error if
// persistence fails; the caller decides whether its operation must fail.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Category == "" {
		event.Category = audit.CategoryOperations
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit event persistence failed",
				"action", event.Action,
				"user_id", event.UserID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}

// List returns events recorded for a user; used by admin tooling and tests.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}
