package session

import (
	"time"

	"amora/internal/screening/models"
)

// User-facing terminal messages. Adverse messages are deliberately uniform
// and never name the rule or answer that triggered the verdict.
const (
	MsgApproved = "Welcome to Amora. Your profile is now live."
	MsgCooldown = "We can't approve your application right now. You can try again later."
	MsgLifetime = "We're unable to accept your application."
)

// Progress locates the user inside the current phase's sampled set.
type Progress struct {
	Step       int
	TotalSteps int
	Phase      models.PhaseID
}

// Result is either the next question to serve or a terminal outcome, never
// both. Terminal outcomes are ordinary results, not errors.
type Result struct {
	Question              *models.Question
	MinSelectionsRequired int
	Progress              Progress

	Outcome       models.Outcome
	Message       string
	CooldownUntil *time.Time
}

// Terminal reports whether the result ends the screening flow.
func (r *Result) Terminal() bool {
	return r.Outcome != "" && r.Outcome.Terminal()
}

func terminalResult(outcome models.Outcome) *Result {
	r := &Result{Outcome: outcome}
	switch outcome.Normalized() {
	case models.OutcomeApproved:
		r.Message = MsgApproved
	case models.OutcomeCooldown:
		r.Message = MsgCooldown
	case models.OutcomeLifetimeIneligible:
		r.Message = MsgLifetime
	}
	return r
}

// Status summarizes where a user stands without mutating anything.
type Status struct {
	State         string
	Outcome       models.Outcome
	Progress      *Progress
	CooldownUntil *time.Time
	Attempts      int
}

const (
	StateNotStarted = "not_started"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
)
