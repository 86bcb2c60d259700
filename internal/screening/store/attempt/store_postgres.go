// Package attempt persists audit-grade screening attempts. A partial unique
// index on (user_id) WHERE outcome = 'IN_PROGRESS' enforces the single open
// attempt per user.
package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// terminalOutcomes includes the legacy FAILED value so attempts written
// before the cooldown rename still block and unblock re-entry correctly.
var terminalOutcomes = []string{
	string(models.OutcomeApproved),
	string(models.OutcomeCooldown),
	string(models.OutcomeLifetimeIneligible),
	string(models.OutcomeLegacyFailed),
}

// PostgresStore stores attempts with answers and phase scores as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Open(ctx context.Context, attempt *models.ScreeningAttempt) error {
	answers, scores, err := marshalSnapshot(attempt.Answers, attempt.PhaseScores)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO screening_attempts
			(id, user_id, config_version, outcome, started_at, device, answers, phase_scores)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		attempt.ID.String(),
		attempt.UserID.String(),
		attempt.ConfigVersion,
		string(models.OutcomeInProgress),
		attempt.StartedAt,
		attempt.Device,
		answers,
		scores,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("open screening attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOpen(ctx context.Context, userID id.UserID) (*models.ScreeningAttempt, error) {
	query := selectAttempt + `
		WHERE user_id = $1 AND outcome = $2
	`
	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, userID.String(), string(models.OutcomeInProgress)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context, userID id.UserID, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore) error {
	answersDoc, scoresDoc, err := marshalSnapshot(answers, scores)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE screening_attempts
		SET answers = $3, phase_scores = $4
		WHERE user_id = $1 AND outcome = $2
	`, userID.String(), string(models.OutcomeInProgress), answersDoc, scoresDoc)
	if err != nil {
		return fmt.Errorf("snapshot screening attempt: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) Close(ctx context.Context, userID id.UserID, outcome models.Outcome, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore, completedAt time.Time) error {
	answersDoc, scoresDoc, err := marshalSnapshot(answers, scores)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE screening_attempts
		SET outcome = $3, answers = $4, phase_scores = $5, completed_at = $6
		WHERE user_id = $1 AND outcome = $2
	`, userID.String(), string(models.OutcomeInProgress), string(outcome), answersDoc, scoresDoc, completedAt)
	if err != nil {
		return fmt.Errorf("close screening attempt: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) LatestCompleted(ctx context.Context, userID id.UserID) (*models.ScreeningAttempt, error) {
	query := selectAttempt + `
		WHERE user_id = $1 AND outcome = ANY($2)
		ORDER BY completed_at DESC
		LIMIT 1
	`
	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, userID.String(), pq.Array(terminalOutcomes)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.ScreeningAttempt, error) {
	query := selectAttempt + `
		WHERE user_id = $1
		ORDER BY started_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list screening attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.ScreeningAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const selectAttempt = `
	SELECT id, user_id, config_version, outcome, started_at, completed_at, device, answers, phase_scores
	FROM screening_attempts
`

type attemptRow interface {
	Scan(dest ...any) error
}

func scanAttempt(row attemptRow) (*models.ScreeningAttempt, error) {
	var a models.ScreeningAttempt
	var attemptID, userID, outcome string
	var completedAt sql.NullTime
	var device sql.NullString
	var answers, scores []byte
	if err := row.Scan(&attemptID, &userID, &a.ConfigVersion, &outcome, &a.StartedAt, &completedAt, &device, &answers, &scores); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan screening attempt: %w", err)
	}

	var err error
	if a.ID, err = id.ParseAttemptID(attemptID); err != nil {
		return nil, fmt.Errorf("parse attempt id: %w", err)
	}
	if a.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("parse attempt user id: %w", err)
	}
	if a.Outcome, err = models.ParseOutcome(outcome); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	a.Device = device.String
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal attempt answers: %w", err)
		}
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &a.PhaseScores); err != nil {
			return nil, fmt.Errorf("unmarshal attempt phase scores: %w", err)
		}
	}
	return &a, nil
}

func marshalSnapshot(answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore) ([]byte, []byte, error) {
	if answers == nil {
		answers = []models.AnswerRecord{}
	}
	if scores == nil {
		scores = map[models.PhaseID]models.PhaseScore{}
	}
	answersDoc, err := json.Marshal(answers)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal attempt answers: %w", err)
	}
	scoresDoc, err := json.Marshal(scores)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal attempt phase scores: %w", err)
	}
	return answersDoc, scoresDoc, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
