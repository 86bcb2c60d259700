package quizconfig

import (
	"context"
	"sync"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"
)

type versionKey struct {
	version int
	segment models.AudienceSegment
}

// InMemoryStore holds published quiz configs for tests and development.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[versionKey]*models.QuizConfigVersion
	active   map[models.AudienceSegment]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		versions: make(map[versionKey]*models.QuizConfigVersion),
		active:   make(map[models.AudienceSegment]int),
	}
}

// Put registers a config version; seed helper.
func (s *InMemoryStore) Put(cfg *models.QuizConfigVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[versionKey{cfg.Version, cfg.AudienceSegment}] = cfg
	if cfg.Status == models.ConfigStatusActive {
		s.active[cfg.AudienceSegment] = cfg.Version
	}
}

func (s *InMemoryStore) GetByVersionAndSegment(_ context.Context, version int, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.versions[versionKey{version, segment}]; ok {
		return cfg, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetActive(_ context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.active[segment]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cfg, ok := s.versions[versionKey{version, segment}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cfg, nil
}

func (s *InMemoryStore) GetLatestPublished(_ context.Context, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.QuizConfigVersion
	for key, cfg := range s.versions {
		if key.segment != segment {
			continue
		}
		if cfg.Status != models.ConfigStatusPublished && cfg.Status != models.ConfigStatusActive {
			continue
		}
		if best == nil || cfg.Version > best.Version {
			best = cfg
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best, nil
}

func (s *InMemoryStore) MarkActive(_ context.Context, version int, segment models.AudienceSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.versions[versionKey{version, segment}]
	if !ok {
		return sentinel.ErrNotFound
	}
	cfg.Status = models.ConfigStatusActive
	s.active[segment] = version
	return nil
}
