// Package overlay resolves live rule values with snapshot fallback.
//
// Overlay reads never fail a session: a store error degrades to the frozen
// snapshot value, with a warning and a metric, so operator-side outages
// cannot strand users mid-questionnaire.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"amora/internal/screening/models"
	"amora/internal/screening/ports"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// FallbackObserver counts overlay reads that degraded to snapshot values.
type FallbackObserver interface {
	IncrementOverlayFallbacks()
}

type Service struct {
	store     ports.RuleStore
	logger    *slog.Logger
	fallbacks FallbackObserver
	// defaultPenalty applies when neither overlay nor snapshot configures
	// an under-selection penalty.
	defaultPenalty float64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithFallbackObserver(obs FallbackObserver) Option {
	return func(s *Service) {
		s.fallbacks = obs
	}
}

func WithDefaultPenalty(penalty float64) Option {
	return func(s *Service) {
		s.defaultPenalty = penalty
	}
}

func New(store ports.RuleStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	svc := &Service{store: store, logger: slog.Default(), defaultPenalty: 1}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// PhaseRules returns the live rules for one phase, or nil when none are
// configured or the overlay is unreachable.
func (s *Service) PhaseRules(ctx context.Context, configVersion int, phase models.PhaseID) *models.PhaseRules {
	all, err := s.store.GetPhaseRules(ctx, configVersion)
	if err != nil {
		s.degrade(ctx, "phase rules", err)
		return nil
	}
	return all[phase]
}

// LifetimeRules returns the version's lifetime rules in ordinal order. The
// frozen snapshot carries no lifetime rules, so degradation means none.
func (s *Service) LifetimeRules(ctx context.Context, configVersion int) []models.LifetimeRule {
	rules, err := s.store.GetLifetimeRules(ctx, configVersion)
	if err != nil {
		s.degrade(ctx, "lifetime rules", err)
		return nil
	}
	return rules
}

// QuestionConstraints resolves a question's multi-select constraints:
// overlay first, then snapshot, then the engine default penalty.
func (s *Service) QuestionConstraints(ctx context.Context, q *models.Question) (minRequired int, penalty float64) {
	minRequired = q.MinSelectionsRequired
	penalty = q.MinSelectionsPenalty
	if penalty == 0 {
		penalty = s.defaultPenalty
	}

	c, err := s.store.GetQuestionConstraints(ctx, q.ID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.degrade(ctx, "question constraints", err)
		}
		return minRequired, penalty
	}
	minRequired = c.MinSelectionsRequired
	if c.MinSelectionsPenalty != nil {
		penalty = *c.MinSelectionsPenalty
	}
	return minRequired, penalty
}

// AnswerWeights resolves the effective weight of every answer of a question,
// preferring overlay overrides over snapshot weights.
func (s *Service) AnswerWeights(ctx context.Context, q *models.Question) map[id.AnswerID]float64 {
	out := make(map[id.AnswerID]float64, len(q.Answers))
	for _, a := range q.Answers {
		out[a.ID] = a.Weight
		w, err := s.store.GetAnswerWeight(ctx, q.ID, a.ID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				s.degrade(ctx, "answer weight", err)
			}
			continue
		}
		out[a.ID] = w
	}
	return out
}

func (s *Service) degrade(ctx context.Context, what string, err error) {
	s.logger.WarnContext(ctx, "overlay read degraded to snapshot",
		"overlay", what,
		"error", err,
	)
	if s.fallbacks != nil {
		s.fallbacks.IncrementOverlayFallbacks()
	}
}
