package session

import (
	"context"
	"errors"

	"amora/internal/screening/models"
	"amora/pkg/platform/audit"
	"amora/pkg/platform/sentinel"
	"amora/pkg/requestcontext"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// Start opens a screening session, or reports why the user cannot enter one.
// Blocked entries (unexpired cooldown, prior approval or lifetime verdict)
// come back as terminal results, not errors, and create no attempt.
func (s *Service) Start(ctx context.Context, userID id.UserID, segmentHint models.AudienceSegment) (*Result, error) {
	now := s.now(ctx)

	verified, status, err := s.verifier.IsVerified(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification subsystem unavailable")
	}
	if !verified {
		if status == "" {
			status = "identity verification not complete"
		}
		return nil, dErrors.New(dErrors.CodeForbidden, status)
	}

	// a user with an open attempt resumes it rather than starting over
	open, err := s.attempts.GetOpen(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening attempts")
	}
	if open != nil {
		return s.resume(ctx, userID)
	}

	latest, err := s.attempts.LatestCompleted(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening attempts")
	}
	if latest != nil {
		switch latest.Outcome.Normalized() {
		case models.OutcomeApproved:
			return terminalResult(models.OutcomeApproved), nil
		case models.OutcomeLifetimeIneligible:
			return terminalResult(models.OutcomeLifetimeIneligible), nil
		case models.OutcomeCooldown:
			until := latest.StartedAt.Add(s.cfg.CooldownWindow)
			if now.Before(until) {
				r := terminalResult(models.OutcomeCooldown)
				r.CooldownUntil = &until
				return r, nil
			}
			// cooldown expired; any stale session document is reset
			if err := s.states.Delete(ctx, userID); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset screening state")
			}
		}
	}

	cfg, err := s.resolver.Resolve(ctx, 0, segmentHint)
	if err != nil {
		return nil, err
	}

	served := s.sample(ctx, cfg, models.Phase1)
	if len(served) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "screening configuration has no questions for the opening phase")
	}

	state := &models.ScreeningState{
		CurrentPhase:        models.Phase1,
		ServedQuestionIDs:   served,
		PhaseScores:         make(map[models.PhaseID]models.PhaseScore),
		ConfigVersion:       cfg.Version,
		AudienceSegmentUsed: cfg.AudienceSegment,
	}

	attempt := &models.ScreeningAttempt{
		ID:            id.NewAttemptID(),
		UserID:        userID,
		ConfigVersion: cfg.Version,
		Outcome:       models.OutcomeInProgress,
		StartedAt:     now,
		Device:        requestcontext.DeviceSummary(ctx),
	}
	if err := s.attempts.Open(ctx, attempt); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.resume(ctx, userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open screening attempt")
	}
	if err := s.states.Save(ctx, userID, state); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist screening state")
	}

	if err := s.emitAudit(ctx, audit.Event{
		Category:      audit.CategoryOperations,
		Timestamp:     now,
		UserID:        userID,
		Action:        audit.EventScreeningStarted,
		ConfigVersion: cfg.Version,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit screening start",
			"user_id", userID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementSessionsStarted()
	}
	s.logger.InfoContext(ctx, "screening session started",
		"user_id", userID,
		"config_version", cfg.Version,
		"segment", cfg.AudienceSegment,
		"served", len(served),
	)

	return s.serveCurrent(ctx, cfg, state)
}

// resume re-serves the current question of an in-flight session.
func (s *Service) resume(ctx context.Context, userID id.UserID) (*Result, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.resolver.Resolve(ctx, state.ConfigVersion, state.AudienceSegmentUsed)
	if err != nil {
		return nil, err
	}
	return s.serveCurrent(ctx, cfg, state)
}

func (s *Service) loadState(ctx context.Context, userID id.UserID) (*models.ScreeningState, error) {
	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load screening state")
	}
	if state == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "no screening session in progress")
	}
	return state, nil
}

// serveCurrent packages the currently served question with its live
// constraints and phase progress.
func (s *Service) serveCurrent(ctx context.Context, cfg *models.QuizConfigVersion, state *models.ScreeningState) (*Result, error) {
	questionID, ok := state.CurrentQuestionID()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "screening state points past the served question set")
	}
	phase, ok := cfg.Phase(state.CurrentPhase)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "screening state references an unknown phase")
	}
	q, ok := phase.Question(questionID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "served question missing from configuration")
	}

	minRequired, _ := s.overlay.QuestionConstraints(ctx, q)
	return &Result{
		Question:              q,
		MinSelectionsRequired: minRequired,
		Progress: Progress{
			Step:       state.CurrentQuestionIndex + 1,
			TotalSteps: len(state.ServedQuestionIDs),
			Phase:      state.CurrentPhase,
		},
	}, nil
}
