package models

import (
	dErrors "amora/pkg/domain-errors"
)

// Outcome is the result of a screening attempt.
type Outcome string

const (
	OutcomeInProgress         Outcome = "IN_PROGRESS"
	OutcomeApproved           Outcome = "APPROVED"
	OutcomeCooldown           Outcome = "COOLDOWN"
	OutcomeLifetimeIneligible Outcome = "LIFETIME_INELIGIBLE"

	// OutcomeLegacyFailed is only read from historical rows. Writes always
	// use OutcomeCooldown; readers normalize via Normalized.
	OutcomeLegacyFailed Outcome = "FAILED"
)

// ParseOutcome constructs an Outcome from a stored value.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	switch o {
	case OutcomeInProgress, OutcomeApproved, OutcomeCooldown, OutcomeLifetimeIneligible, OutcomeLegacyFailed:
		return o, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown screening outcome")
}

// Normalized maps the legacy FAILED value to COOLDOWN. All other outcomes
// pass through unchanged.
func (o Outcome) Normalized() Outcome {
	if o == OutcomeLegacyFailed {
		return OutcomeCooldown
	}
	return o
}

// Terminal reports whether the outcome ends the attempt.
func (o Outcome) Terminal() bool {
	switch o.Normalized() {
	case OutcomeApproved, OutcomeCooldown, OutcomeLifetimeIneligible:
		return true
	}
	return false
}

func (o Outcome) String() string { return string(o) }

// PendingOutcomeType is a deferred verdict recorded mid-phase and applied at
// the phase boundary.
type PendingOutcomeType string

const (
	PendingCooldown PendingOutcomeType = "COOLDOWN"
	PendingLifetime PendingOutcomeType = "LIFETIME_INELIGIBLE"

	// PendingLegacyFailed appears in state documents written before the
	// cooldown rename. Same severity as PendingCooldown.
	PendingLegacyFailed PendingOutcomeType = "FAILED"
)

// priority orders pending verdicts by severity. A pending outcome is only
// ever replaced by a strictly higher-priority one.
func (t PendingOutcomeType) priority() int {
	switch t {
	case PendingLifetime:
		return 2
	case PendingCooldown, PendingLegacyFailed:
		return 1
	}
	return 0
}

// Outcome converts the pending type to the terminal outcome it resolves to.
func (t PendingOutcomeType) Outcome() Outcome {
	if t == PendingLifetime {
		return OutcomeLifetimeIneligible
	}
	return OutcomeCooldown
}

// PendingOutcome is a verdict queued for the end of the current phase. The
// phase keeps serving its sampled questions so the user cannot infer which
// answer triggered it.
type PendingOutcome struct {
	Type        PendingOutcomeType `json:"type"`
	Phase       PhaseID            `json:"phase"`
	TriggeredBy string             `json:"triggered_by,omitempty"`
}

// Upgrade merges a new pending verdict into the state. An existing verdict is
// never downgraded: LIFETIME_INELIGIBLE wins over COOLDOWN, and equal
// severity keeps the earlier trigger.
func (s *ScreeningState) Upgrade(p PendingOutcome) {
	if s.PendingOutcome == nil || p.Type.priority() > s.PendingOutcome.Type.priority() {
		s.PendingOutcome = &p
	}
}
