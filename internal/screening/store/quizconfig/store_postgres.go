// Package quizconfig persists published quiz configuration versions.
// Versions are immutable once published; only the active flag changes.
package quizconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"
)

// PostgresStore reads quiz configs from the quiz_config_versions table.
// Phases are stored as a JSONB document; the (version, segment) pair is the
// primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByVersionAndSegment(ctx context.Context, version int, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	query := `
		SELECT version, audience_segment, status, phases
		FROM quiz_config_versions
		WHERE version = $1 AND audience_segment = $2
	`
	return scanConfig(s.db.QueryRowContext(ctx, query, version, string(segment)))
}

func (s *PostgresStore) GetActive(ctx context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	query := `
		SELECT version, audience_segment, status, phases
		FROM quiz_config_versions
		WHERE audience_segment = $1 AND status = 'active'
		ORDER BY version DESC
		LIMIT 1
	`
	return scanConfig(s.db.QueryRowContext(ctx, query, string(segment)))
}

func (s *PostgresStore) GetLatestPublished(ctx context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	query := `
		SELECT version, audience_segment, status, phases
		FROM quiz_config_versions
		WHERE audience_segment = $1 AND status IN ('published', 'active')
		ORDER BY version DESC
		LIMIT 1
	`
	return scanConfig(s.db.QueryRowContext(ctx, query, string(segment)))
}

func (s *PostgresStore) MarkActive(ctx context.Context, version int, segment models.AudienceSegment) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE quiz_config_versions
		SET status = 'active'
		WHERE version = $1 AND audience_segment = $2
	`, version, string(segment))
	if err != nil {
		return fmt.Errorf("mark config active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark config active rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type configRow interface {
	Scan(dest ...any) error
}

func scanConfig(row configRow) (*models.QuizConfigVersion, error) {
	var cfg models.QuizConfigVersion
	var segment, status string
	var phases []byte
	if err := row.Scan(&cfg.Version, &segment, &status, &phases); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan quiz config: %w", err)
	}
	cfg.AudienceSegment = models.AudienceSegment(segment)
	cfg.Status = models.ConfigStatus(status)
	if err := json.Unmarshal(phases, &cfg.Phases); err != nil {
		return nil, fmt.Errorf("unmarshal quiz config phases: %w", err)
	}
	return &cfg, nil
}
