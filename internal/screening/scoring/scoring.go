// Package scoring computes per-question scores from resolved answer weights.
//
// Multi-select scoring is deliberately max-based: selecting several bad
// answers is no worse than selecting the worst of them. The sum of selected
// weights is never used.
package scoring

import (
	"fmt"

	"amora/internal/screening/models"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// Resolved carries the weights and constraints in effect for one question at
// submission time, after overlay lookups and defaulting.
type Resolved struct {
	// Weights maps every answer of the question to its effective weight.
	Weights map[id.AnswerID]float64
	// MinSelectionsRequired is zero when the question has no floor.
	MinSelectionsRequired int
	// MinSelectionsPenalty is added to the question score on
	// under-selection.
	MinSelectionsPenalty float64
}

// Result is the outcome of scoring one submission.
type Result struct {
	// Selected are the accepted answer ids, deduplicated, in submission
	// order.
	Selected []id.AnswerID
	// PerAnswerWeights aligns with Selected.
	PerAnswerWeights []float64
	// MaxSelectedWeight is the highest weight among selected answers; it
	// feeds escalation thresholds and the hard-ban check.
	MaxSelectedWeight float64
	// QuestionScore is MaxSelectedWeight plus any under-selection penalty.
	// This is what accumulates into the phase sum.
	QuestionScore float64
	// PenaltyApplied is non-zero when fewer than the required number of
	// answers were selected.
	PenaltyApplied float64
}

// Score validates a submission against the question and computes its score.
// Selection shape errors come back as coded validation errors.
func Score(q *models.Question, res Resolved, selected []id.AnswerID) (*Result, error) {
	if q == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "scoring requires a question")
	}
	if len(selected) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one answer must be selected")
	}
	if !q.AllowMultiple && len(selected) > 1 {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("question %s does not allow multiple answers", q.ID))
	}

	seen := make(map[id.AnswerID]struct{}, len(selected))
	result := &Result{}
	for _, aid := range selected {
		if _, dup := seen[aid]; dup {
			continue
		}
		seen[aid] = struct{}{}

		if _, ok := q.Answer(aid); !ok {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("answer %s does not belong to question %s", aid, q.ID))
		}
		w, ok := res.Weights[aid]
		if !ok {
			return nil, dErrors.New(dErrors.CodeInternal,
				fmt.Sprintf("no weight resolved for answer %s", aid))
		}
		result.Selected = append(result.Selected, aid)
		result.PerAnswerWeights = append(result.PerAnswerWeights, w)
		if w > result.MaxSelectedWeight {
			result.MaxSelectedWeight = w
		}
	}

	result.QuestionScore = result.MaxSelectedWeight
	if q.AllowMultiple && res.MinSelectionsRequired > 0 && len(result.Selected) < res.MinSelectionsRequired {
		result.PenaltyApplied = res.MinSelectionsPenalty
		result.QuestionScore += res.MinSelectionsPenalty
	}
	return result, nil
}

// Records expands a scored submission into answer history records. The
// penalty rides on the first record so history replay reproduces the phase
// scores.
func Records(q *models.Question, phase models.PhaseID, r *Result) []models.AnswerRecord {
	out := make([]models.AnswerRecord, 0, len(r.Selected))
	for i, aid := range r.Selected {
		rec := models.AnswerRecord{
			QuestionID: q.ID,
			AnswerID:   aid,
			Weight:     r.PerAnswerWeights[i],
			Phase:      phase,
		}
		if i == 0 {
			rec.Penalty = r.PenaltyApplied
		}
		out = append(out, rec)
	}
	return out
}
