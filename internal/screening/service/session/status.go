package session

import (
	"context"

	"amora/internal/screening/models"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// GetStatus reports where the user stands without mutating anything.
func (s *Service) GetStatus(ctx context.Context, userID id.UserID) (*Status, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening attempts")
	}

	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening state")
	}
	if state != nil {
		return &Status{
			State:   StateInProgress,
			Outcome: models.OutcomeInProgress,
			Progress: &Progress{
				Step:       state.CurrentQuestionIndex + 1,
				TotalSteps: len(state.ServedQuestionIDs),
				Phase:      state.CurrentPhase,
			},
			Attempts: len(attempts),
		}, nil
	}

	latest, err := s.attempts.LatestCompleted(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening attempts")
	}
	if latest == nil {
		return &Status{State: StateNotStarted, Attempts: len(attempts)}, nil
	}

	status := &Status{
		State:    StateCompleted,
		Outcome:  latest.Outcome.Normalized(),
		Attempts: len(attempts),
	}
	if status.Outcome == models.OutcomeCooldown {
		until := latest.StartedAt.Add(s.cfg.CooldownWindow)
		status.CooldownUntil = &until
	}
	return status, nil
}
