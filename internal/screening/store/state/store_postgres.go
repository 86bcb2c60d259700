// Package state persists the per-user in-flight session document.
// One row per user; the document is written whole after each submission's
// computation completes.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amora/internal/screening/models"

	id "amora/pkg/domain"
)

// PostgresStore stores session documents as JSONB rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, userID id.UserID) (*models.ScreeningState, error) {
	query := `
		SELECT state
		FROM screening_states
		WHERE user_id = $1
	`
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load screening state: %w", err)
	}
	var st models.ScreeningState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("unmarshal screening state: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) Save(ctx context.Context, userID id.UserID, state *models.ScreeningState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal screening state: %w", err)
	}
	query := `
		INSERT INTO screening_states (user_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID.String(), doc, time.Now().UTC()); err != nil {
		return fmt.Errorf("save screening state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM screening_states WHERE user_id = $1`, userID.String()); err != nil {
		return fmt.Errorf("delete screening state: %w", err)
	}
	return nil
}
