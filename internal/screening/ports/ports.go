// Package ports declares the storage and collaborator interfaces of the
// screening module. Stores return sentinel errors; services translate them
// into coded domain errors.
package ports

import (
	"context"
	"time"

	"amora/internal/screening/models"

	id "amora/pkg/domain"
)

// ConfigStore reads immutable published quiz configurations.
type ConfigStore interface {
	// GetByVersionAndSegment returns one exact config version, or
	// sentinel.ErrNotFound.
	GetByVersionAndSegment(ctx context.Context, version int, segment models.AudienceSegment) (*models.QuizConfigVersion, error)
	// GetActive returns the segment's currently active version, or
	// sentinel.ErrNotFound when none is marked active.
	GetActive(ctx context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error)
	// GetLatestPublished returns the highest published version for the
	// segment regardless of active flag, or sentinel.ErrNotFound.
	GetLatestPublished(ctx context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error)
	// MarkActive flags a version as the segment's active one.
	MarkActive(ctx context.Context, version int, segment models.AudienceSegment) error
}

// RuleStore reads the live rule overlay. Rows may be edited by operators at
// any time; callers re-fetch on every decision point.
type RuleStore interface {
	// GetPhaseRules returns the phase rules of a config version, keyed by
	// phase. Missing phases are simply absent from the map.
	GetPhaseRules(ctx context.Context, configVersion int) (map[models.PhaseID]*models.PhaseRules, error)
	// GetLifetimeRules returns the version's lifetime rules in ordinal
	// order. An empty slice means no rules configured.
	GetLifetimeRules(ctx context.Context, configVersion int) ([]models.LifetimeRule, error)
	// GetQuestionConstraints returns overlay constraints for a question, or
	// sentinel.ErrNotFound when no override exists.
	GetQuestionConstraints(ctx context.Context, questionID id.QuestionID) (*models.QuestionConstraints, error)
	// GetAnswerWeight returns an overlay weight override, or
	// sentinel.ErrNotFound when the snapshot weight should be used.
	GetAnswerWeight(ctx context.Context, questionID id.QuestionID, answerID id.AnswerID) (float64, error)
}

// StateStore persists the per-user in-flight session document.
type StateStore interface {
	// Load returns the user's session state, or (nil, nil) when absent.
	Load(ctx context.Context, userID id.UserID) (*models.ScreeningState, error)
	Save(ctx context.Context, userID id.UserID, state *models.ScreeningState) error
	Delete(ctx context.Context, userID id.UserID) error
}

// AttemptStore persists audit-grade screening attempts.
type AttemptStore interface {
	// Open records a new in-progress attempt. Returns sentinel.ErrConflict
	// when the user already has an open attempt.
	Open(ctx context.Context, attempt *models.ScreeningAttempt) error
	// GetOpen returns the user's open attempt, or (nil, nil) when absent.
	GetOpen(ctx context.Context, userID id.UserID) (*models.ScreeningAttempt, error)
	// Snapshot updates the open attempt's answers and phase scores. Called
	// after every accepted submission.
	Snapshot(ctx context.Context, userID id.UserID, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore) error
	// Close finalizes the open attempt with a terminal outcome.
	Close(ctx context.Context, userID id.UserID, outcome models.Outcome, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore, completedAt time.Time) error
	// LatestCompleted returns the user's most recently completed attempt,
	// or (nil, nil) when the user never finished one.
	LatestCompleted(ctx context.Context, userID id.UserID) (*models.ScreeningAttempt, error)
	// ListByUser returns all attempts of a user, newest first.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.ScreeningAttempt, error)
}

// Verifier answers whether a user cleared the external verification
// subsystem. The status string is surfaced verbatim to blocked callers.
type Verifier interface {
	IsVerified(ctx context.Context, userID id.UserID) (bool, string, error)
}

// Locker serializes screening operations per user. The engine assumes no two
// mutations for the same user run concurrently; the lock provides that
// guarantee at the transport boundary.
type Locker interface {
	// Acquire takes the user's lock and returns its release func, or
	// sentinel.ErrConflict when another request holds it.
	Acquire(ctx context.Context, userID id.UserID) (func(), error)
}
