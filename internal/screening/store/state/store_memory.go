package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"amora/internal/screening/models"

	id "amora/pkg/domain"
)

// InMemoryStore keeps session documents keyed by user. Documents round-trip
// through JSON so tests observe the same serialization as production.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.UserID][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.UserID][]byte)}
}

func (s *InMemoryStore) Load(_ context.Context, userID id.UserID) (*models.ScreeningState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[userID]
	if !ok {
		return nil, nil
	}
	var st models.ScreeningState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("unmarshal screening state: %w", err)
	}
	return &st, nil
}

func (s *InMemoryStore) Save(_ context.Context, userID id.UserID, state *models.ScreeningState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal screening state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = doc
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, userID)
	return nil
}
