package rules

import (
	"context"
	"sort"
	"sync"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

type weightKey struct {
	question id.QuestionID
	answer   id.AnswerID
}

// InMemoryStore holds the live rule overlay for tests and development.
// Setters mirror what the operator tooling does in production.
type InMemoryStore struct {
	mu          sync.RWMutex
	phaseRules  map[int]map[models.PhaseID]*models.PhaseRules
	lifetime    map[int][]models.LifetimeRule
	constraints map[id.QuestionID]*models.QuestionConstraints
	weights     map[weightKey]float64

	// FailNext makes the next read of each kind return an error; used to
	// exercise overlay degradation paths.
	FailNext error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		phaseRules:  make(map[int]map[models.PhaseID]*models.PhaseRules),
		lifetime:    make(map[int][]models.LifetimeRule),
		constraints: make(map[id.QuestionID]*models.QuestionConstraints),
		weights:     make(map[weightKey]float64),
	}
}

func (s *InMemoryStore) SetPhaseRules(configVersion int, phase models.PhaseID, r *models.PhaseRules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phaseRules[configVersion] == nil {
		s.phaseRules[configVersion] = make(map[models.PhaseID]*models.PhaseRules)
	}
	s.phaseRules[configVersion][phase] = r
}

func (s *InMemoryStore) SetLifetimeRules(configVersion int, rules []models.LifetimeRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifetime[configVersion] = rules
}

func (s *InMemoryStore) SetQuestionConstraints(questionID id.QuestionID, c *models.QuestionConstraints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints[questionID] = c
}

func (s *InMemoryStore) SetAnswerWeight(questionID id.QuestionID, answerID id.AnswerID, weight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[weightKey{questionID, answerID}] = weight
}

func (s *InMemoryStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *InMemoryStore) GetPhaseRules(_ context.Context, configVersion int) (map[models.PhaseID]*models.PhaseRules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	out := make(map[models.PhaseID]*models.PhaseRules, len(s.phaseRules[configVersion]))
	for phase, r := range s.phaseRules[configVersion] {
		copied := *r
		out[phase] = &copied
	}
	return out, nil
}

func (s *InMemoryStore) GetLifetimeRules(_ context.Context, configVersion int) ([]models.LifetimeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	rules := append([]models.LifetimeRule(nil), s.lifetime[configVersion]...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Ordinal < rules[j].Ordinal })
	return rules, nil
}

func (s *InMemoryStore) GetQuestionConstraints(_ context.Context, questionID id.QuestionID) (*models.QuestionConstraints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	if c, ok := s.constraints[questionID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetAnswerWeight(_ context.Context, questionID id.QuestionID, answerID id.AnswerID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}

	if w, ok := s.weights[weightKey{questionID, answerID}]; ok {
		return w, nil
	}
	return 0, sentinel.ErrNotFound
}
