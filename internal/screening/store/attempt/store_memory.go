package attempt

import (
	"context"
	"sync"
	"time"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// InMemoryStore keeps attempts per user, oldest first.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts map[id.UserID][]*models.ScreeningAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{attempts: make(map[id.UserID][]*models.ScreeningAttempt)}
}

func (s *InMemoryStore) Open(_ context.Context, attempt *models.ScreeningAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts[attempt.UserID] {
		if a.Outcome == models.OutcomeInProgress {
			return sentinel.ErrConflict
		}
	}
	copied := *attempt
	s.attempts[attempt.UserID] = append(s.attempts[attempt.UserID], &copied)
	return nil
}

func (s *InMemoryStore) GetOpen(_ context.Context, userID id.UserID) (*models.ScreeningAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.attempts[userID] {
		if a.Outcome == models.OutcomeInProgress {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context, userID id.UserID, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts[userID] {
		if a.Outcome == models.OutcomeInProgress {
			a.Answers = append([]models.AnswerRecord(nil), answers...)
			a.PhaseScores = copyScores(scores)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) Close(_ context.Context, userID id.UserID, outcome models.Outcome, answers []models.AnswerRecord, scores map[models.PhaseID]models.PhaseScore, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts[userID] {
		if a.Outcome == models.OutcomeInProgress {
			a.Outcome = outcome
			a.Answers = append([]models.AnswerRecord(nil), answers...)
			a.PhaseScores = copyScores(scores)
			completed := completedAt
			a.CompletedAt = &completed
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) LatestCompleted(_ context.Context, userID id.UserID) (*models.ScreeningAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.ScreeningAttempt
	for _, a := range s.attempts[userID] {
		if a.CompletedAt == nil {
			continue
		}
		if latest == nil || a.CompletedAt.After(*latest.CompletedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.ScreeningAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.attempts[userID]
	out := make([]*models.ScreeningAttempt, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		copied := *list[i]
		out = append(out, &copied)
	}
	return out, nil
}

func copyScores(scores map[models.PhaseID]models.PhaseScore) map[models.PhaseID]models.PhaseScore {
	out := make(map[models.PhaseID]models.PhaseScore, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
