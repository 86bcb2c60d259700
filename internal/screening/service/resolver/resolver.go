// Package resolver picks the quiz configuration version a session runs on.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"amora/internal/screening/models"
	"amora/internal/screening/ports"
	"amora/pkg/platform/sentinel"

	dErrors "amora/pkg/domain-errors"
)

type Service struct {
	store  ports.ConfigStore
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store ports.ConfigStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("config store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Resolve walks the version fallback chain until a config is found:
// the pinned version for the segment, the pinned version for ALL, the
// segment's active version, the ALL active version, then the latest
// published version for the segment and for ALL. A latest-published hit is
// promoted to active so the next resolution takes the fast path; promotion
// failure does not fail the resolution.
//
// requestedVersion <= 0 means "no pin" and skips the first two steps.
func (s *Service) Resolve(ctx context.Context, requestedVersion int, segment models.AudienceSegment) (*models.QuizConfigVersion, error) {
	if requestedVersion > 0 {
		if cfg, err := s.lookup(ctx, func(ctx context.Context) (*models.QuizConfigVersion, error) {
			return s.store.GetByVersionAndSegment(ctx, requestedVersion, segment)
		}); cfg != nil || err != nil {
			return cfg, err
		}
		if segment != models.SegmentAll {
			if cfg, err := s.lookup(ctx, func(ctx context.Context) (*models.QuizConfigVersion, error) {
				return s.store.GetByVersionAndSegment(ctx, requestedVersion, models.SegmentAll)
			}); cfg != nil || err != nil {
				return cfg, err
			}
		}
	}

	if cfg, err := s.lookup(ctx, func(ctx context.Context) (*models.QuizConfigVersion, error) {
		return s.store.GetActive(ctx, segment)
	}); cfg != nil || err != nil {
		return cfg, err
	}
	if segment != models.SegmentAll {
		if cfg, err := s.lookup(ctx, func(ctx context.Context) (*models.QuizConfigVersion, error) {
			return s.store.GetActive(ctx, models.SegmentAll)
		}); cfg != nil || err != nil {
			return cfg, err
		}
	}

	for _, seg := range s.segmentChain(segment) {
		cfg, err := s.lookup(ctx, func(ctx context.Context) (*models.QuizConfigVersion, error) {
			return s.store.GetLatestPublished(ctx, seg)
		})
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			s.promote(ctx, cfg)
			return cfg, nil
		}
	}

	return nil, dErrors.New(dErrors.CodeUnavailable, "no screening configuration available")
}

func (s *Service) segmentChain(segment models.AudienceSegment) []models.AudienceSegment {
	if segment == models.SegmentAll {
		return []models.AudienceSegment{models.SegmentAll}
	}
	return []models.AudienceSegment{segment, models.SegmentAll}
}

// lookup normalizes not-found to (nil, nil) so the chain can continue, and
// wraps real store failures.
func (s *Service) lookup(ctx context.Context, fetch func(context.Context) (*models.QuizConfigVersion, error)) (*models.QuizConfigVersion, error) {
	cfg, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read screening configuration")
	}
	return cfg, nil
}

func (s *Service) promote(ctx context.Context, cfg *models.QuizConfigVersion) {
	if cfg.Status == models.ConfigStatusActive {
		return
	}
	if err := s.store.MarkActive(ctx, cfg.Version, cfg.AudienceSegment); err != nil {
		s.logger.WarnContext(ctx, "failed to promote screening config to active",
			"version", cfg.Version,
			"segment", cfg.AudienceSegment,
			"error", err,
		)
		return
	}
	cfg.Status = models.ConfigStatusActive
	s.logger.InfoContext(ctx, "screening config promoted to active",
		"version", cfg.Version,
		"segment", cfg.AudienceSegment,
	)
}
