package session

import (
	"context"

	"amora/internal/screening/models"

	id "amora/pkg/domain"
)

// sample draws the question set to serve for a phase. The count is uniform
// in [min, max] after clamping both bounds to the available pool (min at
// least 1); the pool is shuffled so repeat attempts see different sets.
// Without phase rules the whole pool is served.
func (s *Service) sample(ctx context.Context, cfg *models.QuizConfigVersion, phaseID models.PhaseID) []id.QuestionID {
	phase, ok := cfg.Phase(phaseID)
	if !ok || len(phase.Questions) == 0 {
		return nil
	}

	pool := make([]id.QuestionID, len(phase.Questions))
	for i := range phase.Questions {
		pool[i] = phase.Questions[i].ID
	}
	avail := len(pool)

	count := avail
	if rules := s.overlay.PhaseRules(ctx, cfg.Version, phaseID); rules != nil && rules.ServeCountMax > 0 {
		lo := clamp(rules.ServeCountMin, 1, avail)
		hi := clamp(rules.ServeCountMax, lo, avail)
		count = lo + s.intn(hi-lo+1)
	}

	// Fisher-Yates over the copied pool, driven by the injected source
	for i := avail - 1; i > 0; i-- {
		j := s.intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
