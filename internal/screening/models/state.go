package models

import (
	"time"

	id "amora/pkg/domain"
)

// AnswerRecord is one selected answer with its weight as resolved at
// submission time. Multi-select submissions produce one record per selected
// answer; the under-selection penalty, when applied, is carried on the first
// record of the submission so phase scores can be re-derived from history.
type AnswerRecord struct {
	QuestionID id.QuestionID `json:"question_id"`
	AnswerID   id.AnswerID   `json:"answer_id"`
	Weight     float64       `json:"weight"`
	Phase      PhaseID       `json:"phase"`
	Penalty    float64       `json:"penalty,omitempty"`
}

// PhaseScore accumulates per-phase scoring results.
type PhaseScore struct {
	Sum       float64 `json:"sum"`
	MaxWeight float64 `json:"max_weight"`
}

// ScreeningState is the persisted per-user session document. It exists only
// while an attempt is in flight and is written back once per submission,
// after all computation for that submission completed.
type ScreeningState struct {
	CurrentPhase         PhaseID                `json:"current_phase"`
	CurrentQuestionIndex int                    `json:"current_question_index"`
	ServedQuestionIDs    []id.QuestionID        `json:"served_question_ids"`
	Answers              []AnswerRecord         `json:"answers"`
	PhaseScores          map[PhaseID]PhaseScore `json:"phase_scores"`
	ConfigVersion        int                    `json:"config_version"`
	AudienceSegmentUsed  AudienceSegment        `json:"audience_segment_used"`
	PendingOutcome       *PendingOutcome        `json:"pending_outcome,omitempty"`
}

// Score returns the accumulated score for a phase, zero-valued if none.
func (s *ScreeningState) Score(phase PhaseID) PhaseScore {
	return s.PhaseScores[phase]
}

// Record appends the records of one submission and folds its question score
// into the phase accumulator.
func (s *ScreeningState) Record(records []AnswerRecord, questionScore, maxSelected float64) {
	s.Answers = append(s.Answers, records...)
	if s.PhaseScores == nil {
		s.PhaseScores = make(map[PhaseID]PhaseScore)
	}
	ps := s.PhaseScores[s.CurrentPhase]
	ps.Sum += questionScore
	if maxSelected > ps.MaxWeight {
		ps.MaxWeight = maxSelected
	}
	s.PhaseScores[s.CurrentPhase] = ps
}

// EnterPhase repositions the session at the start of a phase with a freshly
// sampled question set. The previous phase's served set is discarded;
// answers and phase scores are kept.
func (s *ScreeningState) EnterPhase(phase PhaseID, served []id.QuestionID) {
	s.CurrentPhase = phase
	s.CurrentQuestionIndex = 0
	s.ServedQuestionIDs = served
}

// CurrentQuestionID returns the question currently being served, or false
// when the phase's sampled set is exhausted.
func (s *ScreeningState) CurrentQuestionID() (id.QuestionID, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.ServedQuestionIDs) {
		return "", false
	}
	return s.ServedQuestionIDs[s.CurrentQuestionIndex], true
}

// RecomputePhaseScores re-derives phase accumulators from an answer history.
// Per question the score is the maximum recorded weight plus any penalty on
// its records; replaying a completed attempt's history reproduces the scores
// the session computed live.
func RecomputePhaseScores(answers []AnswerRecord) map[PhaseID]PhaseScore {
	type key struct {
		phase    PhaseID
		question id.QuestionID
	}
	maxByQ := make(map[key]float64)
	penaltyByQ := make(map[key]float64)
	var order []key
	for _, a := range answers {
		k := key{a.Phase, a.QuestionID}
		if _, seen := maxByQ[k]; !seen {
			order = append(order, k)
			maxByQ[k] = a.Weight
		} else if a.Weight > maxByQ[k] {
			maxByQ[k] = a.Weight
		}
		penaltyByQ[k] += a.Penalty
	}

	out := make(map[PhaseID]PhaseScore)
	for _, k := range order {
		ps := out[k.phase]
		ps.Sum += maxByQ[k] + penaltyByQ[k]
		if maxByQ[k] > ps.MaxWeight {
			ps.MaxWeight = maxByQ[k]
		}
		out[k.phase] = ps
	}
	return out
}

// ScreeningAttempt is the audit-grade record of one run through the
// questionnaire. Exactly one open attempt may exist per user.
type ScreeningAttempt struct {
	ID            id.AttemptID           `json:"id"`
	UserID        id.UserID              `json:"user_id"`
	ConfigVersion int                    `json:"config_version"`
	Outcome       Outcome                `json:"outcome"`
	StartedAt     time.Time              `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	Device        string                 `json:"device,omitempty"`
	Answers       []AnswerRecord         `json:"answers"`
	PhaseScores   map[PhaseID]PhaseScore `json:"phase_scores"`
}

// CooldownWindow is how long a cooldown outcome blocks re-entry, measured
// from the attempt's start time.
const CooldownWindow = 30 * 24 * time.Hour

// CooldownUntil returns when the block imposed by this attempt lifts.
// Only meaningful for cooldown outcomes.
func (a *ScreeningAttempt) CooldownUntil() time.Time {
	return a.StartedAt.Add(CooldownWindow)
}
