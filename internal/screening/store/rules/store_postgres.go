// Package rules persists the live rule overlay: phase thresholds, lifetime
// rules, and per-question constraint and weight overrides. Rows here are
// operator-editable at any time and are re-read on every decision point.
package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// PostgresStore reads overlay rows from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetPhaseRules(ctx context.Context, configVersion int) (map[models.PhaseID]*models.PhaseRules, error) {
	query := `
		SELECT phase, serve_count_min, serve_count_max,
		       cooldown_if_sum_gte, escalate_if_sum_gte,
		       escalate_if_any_weight_gte, approve_if_sum_lte
		FROM screening_phase_rules
		WHERE config_version = $1
	`
	rows, err := s.db.QueryContext(ctx, query, configVersion)
	if err != nil {
		return nil, fmt.Errorf("get phase rules: %w", err)
	}
	defer rows.Close()

	out := make(map[models.PhaseID]*models.PhaseRules)
	for rows.Next() {
		var phase string
		var r models.PhaseRules
		var cooldown, escalateSum, escalateAny, approve sql.NullFloat64
		if err := rows.Scan(&phase, &r.ServeCountMin, &r.ServeCountMax,
			&cooldown, &escalateSum, &escalateAny, &approve); err != nil {
			return nil, fmt.Errorf("scan phase rules: %w", err)
		}
		r.CoolDownIfSumGte = nullableFloat(cooldown)
		r.EscalateIfSumGte = nullableFloat(escalateSum)
		r.EscalateIfAnyWeightGte = nullableFloat(escalateAny)
		r.ApproveIfSumLte = nullableFloat(approve)
		out[models.PhaseID(phase)] = &r
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetLifetimeRules(ctx context.Context, configVersion int) ([]models.LifetimeRule, error) {
	query := `
		SELECT id, ordinal, condition
		FROM screening_lifetime_rules
		WHERE config_version = $1
		ORDER BY ordinal ASC
	`
	rows, err := s.db.QueryContext(ctx, query, configVersion)
	if err != nil {
		return nil, fmt.Errorf("get lifetime rules: %w", err)
	}
	defer rows.Close()

	var out []models.LifetimeRule
	for rows.Next() {
		var rule models.LifetimeRule
		var condition []byte
		if err := rows.Scan(&rule.ID, &rule.Ordinal, &condition); err != nil {
			return nil, fmt.Errorf("scan lifetime rule: %w", err)
		}
		if err := json.Unmarshal(condition, &rule.Condition); err != nil {
			return nil, fmt.Errorf("unmarshal lifetime rule %s: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetQuestionConstraints(ctx context.Context, questionID id.QuestionID) (*models.QuestionConstraints, error) {
	query := `
		SELECT min_selections_required, min_selections_penalty
		FROM screening_question_overrides
		WHERE question_id = $1
	`
	var c models.QuestionConstraints
	var penalty sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, string(questionID)).Scan(&c.MinSelectionsRequired, &penalty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get question constraints: %w", err)
	}
	c.MinSelectionsPenalty = nullableFloat(penalty)
	return &c, nil
}

func (s *PostgresStore) GetAnswerWeight(ctx context.Context, questionID id.QuestionID, answerID id.AnswerID) (float64, error) {
	query := `
		SELECT weight
		FROM screening_answer_weight_overrides
		WHERE question_id = $1 AND answer_id = $2
	`
	var weight float64
	err := s.db.QueryRowContext(ctx, query, string(questionID), string(answerID)).Scan(&weight)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("get answer weight override: %w", err)
	}
	return weight, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
