// Package postgres implements the audit store over a transactional outbox.
// Events are written to the outbox table and published to Kafka by the outbox
// worker; Kafka is the source of truth for downstream consumers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "amora/pkg/platform/audit"

	id "amora/pkg/domain"
)

// Store writes audit events to the audit_outbox table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store backed by the outbox table.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON structure published to Kafka. Field names are stable;
// consumers depend on them.
type payload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	UserID        string `json:"user_id,omitempty"`
	Action        string `json:"action"`
	Outcome       string `json:"outcome,omitempty"`
	ConfigVersion int    `json:"config_version,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	Device        string `json:"device,omitempty"`
}

// Append writes the event to the outbox. Compliance callers treat a failure
// here as fatal for the request, so a verdict is never final without its
// audit row.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p := payload{
		ID:            uuid.NewString(),
		Category:      string(event.Category),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:        event.Action,
		Outcome:       event.Outcome,
		ConfigVersion: event.ConfigVersion,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		ClientIP:      event.ClientIP,
		Device:        event.Device,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, user_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var userID any
	if !event.UserID.IsNil() {
		userID = event.UserID.String()
	}
	if _, err := s.db.ExecContext(ctx, query, p.ID, userID, event.Action, body, event.Timestamp); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByUser returns events recorded for a user, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		event := audit.Event{
			Category:      audit.EventCategory(p.Category),
			Action:        p.Action,
			Outcome:       p.Outcome,
			ConfigVersion: p.ConfigVersion,
			Reason:        p.Reason,
			RequestID:     p.RequestID,
			ClientIP:      p.ClientIP,
			Device:        p.Device,
		}
		if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			event.Timestamp = ts
		}
		if p.UserID != "" {
			if uid, err := id.ParseUserID(p.UserID); err == nil {
				event.UserID = uid
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
