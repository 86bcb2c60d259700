// Package models defines the screening module's domain entities.
//
// QuizConfigVersion and everything it embeds is immutable to the engine: it
// is produced by the publishing workflow and only ever read here. PhaseRules
// and LifetimeRule rows are the mutable live overlay, re-fetched on every
// lookup so operator edits apply to in-flight sessions without a republish.
package models

import (
	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// AudienceSegment is the gender-based question-set variant a session is
// locked to at start.
type AudienceSegment string

const (
	SegmentMale   AudienceSegment = "MALE"
	SegmentFemale AudienceSegment = "FEMALE"
	SegmentAll    AudienceSegment = "ALL"
)

// ParseAudienceSegment constructs an AudienceSegment from external input.
// Empty input defaults to ALL; unknown values are rejected.
func ParseAudienceSegment(s string) (AudienceSegment, error) {
	if s == "" {
		return SegmentAll, nil
	}
	seg := AudienceSegment(s)
	if !seg.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "audience_segment must be MALE, FEMALE or ALL")
	}
	return seg, nil
}

// IsValid checks if the segment is one of the supported enum values.
func (s AudienceSegment) IsValid() bool {
	switch s {
	case SegmentMale, SegmentFemale, SegmentAll:
		return true
	}
	return false
}

func (s AudienceSegment) String() string { return string(s) }

// ConfigStatus tracks a config version through the publishing workflow.
type ConfigStatus string

const (
	ConfigStatusDraft     ConfigStatus = "draft"
	ConfigStatusPublished ConfigStatus = "published"
	ConfigStatusActive    ConfigStatus = "active"
)

// PhaseID identifies an ordered stage of the screening flow.
type PhaseID string

const (
	Phase1 PhaseID = "phase_1"
	Phase2 PhaseID = "phase_2"
	Phase3 PhaseID = "phase_3"
	Phase4 PhaseID = "phase_4"
)

// phaseOrder is the canonical sequential progression. Phase4 is terminal.
var phaseOrder = []PhaseID{Phase1, Phase2, Phase3, Phase4}

// FinalPhase is the last phase; escalations jump straight to it.
const FinalPhase = Phase4

// IsValid checks if the phase is one of the supported stages.
func (p PhaseID) IsValid() bool {
	for _, v := range phaseOrder {
		if v == p {
			return true
		}
	}
	return false
}

// Next returns the sequentially following phase, or false from the final one.
func (p PhaseID) Next() (PhaseID, bool) {
	for i, v := range phaseOrder {
		if v == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}

func (p PhaseID) String() string { return string(p) }

// HardBanWeight is the reserved sentinel answer weight meaning "permanently
// ineligible regardless of rules".
const HardBanWeight = 999999

// AnswerOption is one selectable answer of a question. Weight is the frozen
// snapshot value; the live overlay may override it at lookup time.
type AnswerOption struct {
	ID     id.AnswerID `json:"id"`
	Text   string      `json:"text"`
	Weight float64     `json:"weight"`
}

// Question is a screening question within a phase.
// MinSelectionsRequired/MinSelectionsPenalty are only meaningful when
// AllowMultiple is set.
type Question struct {
	ID                    id.QuestionID  `json:"id"`
	Text                  string         `json:"text"`
	AllowMultiple         bool           `json:"allow_multiple"`
	MinSelectionsRequired int            `json:"min_selections_required,omitempty"`
	MinSelectionsPenalty  float64        `json:"min_selections_penalty,omitempty"`
	Answers               []AnswerOption `json:"answers"`
}

// Answer returns the answer option with the given id, if present.
func (q *Question) Answer(answerID id.AnswerID) (*AnswerOption, bool) {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i], true
		}
	}
	return nil, false
}

// Phase holds the ordered candidate-question pool for one stage.
type Phase struct {
	ID        PhaseID    `json:"id"`
	Questions []Question `json:"questions"`
}

// Question returns the question with the given id, if present in this phase.
func (p *Phase) Question(questionID id.QuestionID) (*Question, bool) {
	for i := range p.Questions {
		if p.Questions[i].ID == questionID {
			return &p.Questions[i], true
		}
	}
	return nil, false
}

// QuizConfigVersion is an immutable published quiz definition.
type QuizConfigVersion struct {
	Version         int             `json:"version"`
	AudienceSegment AudienceSegment `json:"audience_segment"`
	Status          ConfigStatus    `json:"status"`
	Phases          []Phase         `json:"phases"`
}

// Phase returns the phase with the given id, if present.
func (c *QuizConfigVersion) Phase(phaseID PhaseID) (*Phase, bool) {
	for i := range c.Phases {
		if c.Phases[i].ID == phaseID {
			return &c.Phases[i], true
		}
	}
	return nil, false
}

// PhaseRules are the mutable thresholds for one phase of one config version.
// Nil pointer fields mean "no threshold configured".
type PhaseRules struct {
	ServeCountMin          int      `json:"serve_count_min"`
	ServeCountMax          int      `json:"serve_count_max"`
	CoolDownIfSumGte       *float64 `json:"cooldown_if_sum_gte,omitempty"`
	EscalateIfSumGte       *float64 `json:"escalate_if_sum_gte,omitempty"`
	EscalateIfAnyWeightGte *float64 `json:"escalate_if_any_weight_gte,omitempty"`
	ApproveIfSumLte        *float64 `json:"approve_if_sum_lte,omitempty"`
}

// QuestionConstraints are the mutable multi-select constraints for a question.
// A nil penalty means "use the snapshot value, or the default of 1".
type QuestionConstraints struct {
	MinSelectionsRequired int      `json:"min_selections_required"`
	MinSelectionsPenalty  *float64 `json:"min_selections_penalty,omitempty"`
}

// RuleCondition is a node of a lifetime-rule boolean tree. Exactly one of
// Any, All, or the QuestionRef/AnswerRef pair is populated; nesting depth is
// unbounded.
type RuleCondition struct {
	Any         []RuleCondition `json:"any,omitempty"`
	All         []RuleCondition `json:"all,omitempty"`
	QuestionRef string          `json:"question_ref,omitempty"`
	AnswerRef   string          `json:"answer_ref,omitempty"`
}

// IsLeaf reports whether the node is a question/answer reference.
func (c *RuleCondition) IsLeaf() bool {
	return len(c.Any) == 0 && len(c.All) == 0
}

// LifetimeRule is a permanent-ineligibility trigger evaluated against the
// full answer history. Rules are stateless and ordered per config version.
type LifetimeRule struct {
	ID        string        `json:"id"`
	Ordinal   int           `json:"ordinal"`
	Condition RuleCondition `json:"condition"`
}
