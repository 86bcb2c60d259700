// Package audit defines the audit event model and store contract.
//
// Domain services emit events; stores persist them. The postgres store is an
// outbox: rows are published to Kafka by the outbox worker, which downstream
// analytics consume. Keep the event transport-agnostic so stores and sinks
// can fan out.
package audit

import (
	"context"
	"time"

	id "amora/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention policy and routing on the consumer side.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance
	// (screening verdicts). Long retention, tamper-evident storage.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. Short retention, samplable.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	UserID        id.UserID
	Action        string
	Outcome       string
	ConfigVersion int
	Reason        string
	RequestID     string
	ClientIP      string
	Device        string
}

// Actions this service emits.
const (
	EventScreeningStarted   = "screening_started"
	EventScreeningCompleted = "screening_completed"
	EventScreeningBlocked   = "screening_blocked"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher is the emit-side contract consumed by domain services.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
