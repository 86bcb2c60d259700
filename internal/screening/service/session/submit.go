package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amora/internal/screening/lifetime"
	"amora/internal/screening/models"
	"amora/internal/screening/scoring"
	"amora/pkg/platform/audit"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// Submit records one answered question and advances the session. The phase
// always finishes serving its sampled set even when a verdict is already
// pending; the verdict is applied at the phase boundary.
func (s *Service) Submit(ctx context.Context, userID id.UserID, questionID id.QuestionID, selected []id.AnswerID) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "screening.submit", trace.WithAttributes(
		attribute.String("screening.question_id", string(questionID)),
		attribute.Int("screening.selected", len(selected)),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSubmitDuration(time.Since(started).Seconds())
		}
	}()

	now := s.now(ctx)

	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.resolver.Resolve(ctx, state.ConfigVersion, state.AudienceSegmentUsed)
	if err != nil {
		return nil, err
	}

	currentID, ok := state.CurrentQuestionID()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "screening state points past the served question set")
	}
	if questionID != currentID {
		return nil, dErrors.New(dErrors.CodeValidation, "submitted question is not the one currently served")
	}
	phase, ok := cfg.Phase(state.CurrentPhase)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "screening state references an unknown phase")
	}
	q, ok := phase.Question(questionID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "served question missing from configuration")
	}

	minRequired, penalty := s.overlay.QuestionConstraints(ctx, q)
	scored, err := scoring.Score(q, scoring.Resolved{
		Weights:               s.overlay.AnswerWeights(ctx, q),
		MinSelectionsRequired: minRequired,
		MinSelectionsPenalty:  penalty,
	}, selected)
	if err != nil {
		return nil, err
	}
	if scored.PenaltyApplied > 0 {
		s.logger.DebugContext(ctx, "under-selection penalty applied",
			"user_id", userID,
			"question_id", q.ID,
			"min_selections_required", minRequired,
			"selected", len(scored.Selected),
			"penalty", scored.PenaltyApplied,
		)
	}

	state.Record(scoring.Records(q, state.CurrentPhase, scored), scored.QuestionScore, scored.MaxSelectedWeight)

	// adverse findings are recorded now but only applied at the boundary,
	// so the user cannot tell which answer triggered them
	if verdict := lifetime.Evaluate(state.Answers, s.overlay.LifetimeRules(ctx, state.ConfigVersion), s.cfg.HardBanWeight); verdict != nil {
		state.Upgrade(models.PendingOutcome{
			Type:        models.PendingLifetime,
			Phase:       state.CurrentPhase,
			TriggeredBy: verdict.RuleID,
		})
		if s.metrics != nil {
			s.metrics.IncrementLifetimeVerdicts()
		}
	}
	rules := s.overlay.PhaseRules(ctx, state.ConfigVersion, state.CurrentPhase)
	if rules != nil && rules.CoolDownIfSumGte != nil && state.Score(state.CurrentPhase).Sum >= *rules.CoolDownIfSumGte {
		state.Upgrade(models.PendingOutcome{
			Type:        models.PendingCooldown,
			Phase:       state.CurrentPhase,
			TriggeredBy: "cooldown_if_sum_gte",
		})
	}

	state.CurrentQuestionIndex++
	if s.metrics != nil {
		s.metrics.IncrementSubmissions()
	}

	if _, more := state.CurrentQuestionID(); more {
		if err := s.persist(ctx, userID, state); err != nil {
			return nil, err
		}
		return s.serveCurrent(ctx, cfg, state)
	}
	return s.finishPhase(ctx, userID, cfg, state, now)
}

// finishPhase applies the boundary decision order: pending lifetime verdict,
// pending cooldown, phase cooldown threshold, escalation, early approval on
// the third phase, final-phase approval, then the sequential transition. The
// overlay is re-read so threshold edits made mid-phase take effect here.
func (s *Service) finishPhase(ctx context.Context, userID id.UserID, cfg *models.QuizConfigVersion, state *models.ScreeningState, now time.Time) (*Result, error) {
	if p := state.PendingOutcome; p != nil {
		if p.Type == models.PendingLifetime {
			return s.finalize(ctx, userID, state, models.OutcomeLifetimeIneligible, p.TriggeredBy, now)
		}
		return s.finalize(ctx, userID, state, models.OutcomeCooldown, p.TriggeredBy, now)
	}

	phase := state.CurrentPhase
	score := state.Score(phase)
	rules := s.overlay.PhaseRules(ctx, state.ConfigVersion, phase)
	if rules != nil {
		if rules.CoolDownIfSumGte != nil && score.Sum >= *rules.CoolDownIfSumGte {
			return s.finalize(ctx, userID, state, models.OutcomeCooldown, "cooldown_if_sum_gte", now)
		}
		escalate := (rules.EscalateIfSumGte != nil && score.Sum >= *rules.EscalateIfSumGte) ||
			(rules.EscalateIfAnyWeightGte != nil && score.MaxWeight >= *rules.EscalateIfAnyWeightGte)
		if escalate && phase != models.FinalPhase {
			if s.metrics != nil {
				s.metrics.IncrementEscalations()
			}
			s.logger.InfoContext(ctx, "screening escalated to final phase",
				"user_id", userID,
				"from_phase", phase,
				"phase_sum", score.Sum,
				"phase_max_weight", score.MaxWeight,
			)
			return s.transition(ctx, userID, cfg, state, models.FinalPhase, now)
		}
		if phase == models.Phase3 && rules.ApproveIfSumLte != nil && score.Sum <= *rules.ApproveIfSumLte {
			return s.finalize(ctx, userID, state, models.OutcomeApproved, "approve_if_sum_lte", now)
		}
	}

	if phase == models.FinalPhase {
		return s.finalize(ctx, userID, state, models.OutcomeApproved, "", now)
	}
	next, _ := phase.Next()
	return s.transition(ctx, userID, cfg, state, next, now)
}

// transition enters the target phase with a fresh sampled set. Phases with
// no questions in this config are skipped; running out of phases approves.
func (s *Service) transition(ctx context.Context, userID id.UserID, cfg *models.QuizConfigVersion, state *models.ScreeningState, target models.PhaseID, now time.Time) (*Result, error) {
	for {
		served := s.sample(ctx, cfg, target)
		if len(served) > 0 {
			state.EnterPhase(target, served)
			if err := s.persist(ctx, userID, state); err != nil {
				return nil, err
			}
			return s.serveCurrent(ctx, cfg, state)
		}
		next, ok := target.Next()
		if !ok {
			return s.finalize(ctx, userID, state, models.OutcomeApproved, "", now)
		}
		target = next
	}
}

// finalize closes the attempt with a terminal outcome. The verdict audit
// event is compliance-grade: its persistence failure fails the request.
func (s *Service) finalize(ctx context.Context, userID id.UserID, state *models.ScreeningState, outcome models.Outcome, reason string, now time.Time) (*Result, error) {
	open, err := s.attempts.GetOpen(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening attempt")
	}

	if err := s.attempts.Close(ctx, userID, outcome, state.Answers, state.PhaseScores, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close screening attempt")
	}

	action := audit.EventScreeningCompleted
	if outcome != models.OutcomeApproved {
		action = audit.EventScreeningBlocked
	}
	if err := s.emitAudit(ctx, audit.Event{
		Category:      audit.CategoryCompliance,
		Timestamp:     now,
		UserID:        userID,
		Action:        action,
		Outcome:       string(outcome),
		ConfigVersion: state.ConfigVersion,
		Reason:        reason,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record screening verdict")
	}

	if err := s.states.Delete(ctx, userID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear screening state")
	}

	if s.metrics != nil {
		s.metrics.IncrementOutcome(string(outcome))
	}
	s.logger.InfoContext(ctx, "screening attempt finalized",
		"user_id", userID,
		"outcome", outcome,
		"config_version", state.ConfigVersion,
	)

	result := terminalResult(outcome)
	if outcome == models.OutcomeCooldown && open != nil {
		until := open.StartedAt.Add(s.cfg.CooldownWindow)
		result.CooldownUntil = &until
	}
	return result, nil
}

// persist writes the session document and mirrors it onto the open attempt.
// Called only after all computation for the submission succeeded.
func (s *Service) persist(ctx context.Context, userID id.UserID, state *models.ScreeningState) error {
	if err := s.states.Save(ctx, userID, state); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist screening state")
	}
	if err := s.attempts.Snapshot(ctx, userID, state.Answers, state.PhaseScores); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot screening attempt")
	}
	return nil
}
