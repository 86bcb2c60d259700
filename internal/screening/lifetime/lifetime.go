// Package lifetime evaluates permanent-ineligibility rules against a user's
// full answer history.
//
// Rule conditions reference questions and answers in either the prefixed
// runtime form ("q_12", "a_34") or the bare numeric form ("12"). The two
// forms are reconciled here, at the rule evaluation boundary, and nowhere
// else; the rest of the engine treats ids as opaque strings.
package lifetime

import (
	"strconv"
	"strings"

	"amora/internal/screening/models"
)

// Verdict names what made a user permanently ineligible.
type Verdict struct {
	// RuleID is the matched rule, or "hard_ban_weight" for the sentinel.
	RuleID string
}

// HardBanReason marks a verdict triggered by the sentinel weight rather than
// a configured rule.
const HardBanReason = "hard_ban_weight"

// Evaluate checks the history against the sentinel weight and every rule, in
// ordinal order. Returns nil when the user remains eligible.
func Evaluate(history []models.AnswerRecord, rules []models.LifetimeRule, hardBanWeight float64) *Verdict {
	for _, rec := range history {
		if rec.Weight >= hardBanWeight {
			return &Verdict{RuleID: HardBanReason}
		}
	}
	for _, rule := range rules {
		if matchCondition(&rule.Condition, history) {
			return &Verdict{RuleID: rule.ID}
		}
	}
	return nil
}

// matchCondition walks the boolean tree. An empty composite never matches.
func matchCondition(c *models.RuleCondition, history []models.AnswerRecord) bool {
	switch {
	case len(c.Any) > 0:
		for i := range c.Any {
			if matchCondition(&c.Any[i], history) {
				return true
			}
		}
		return false
	case len(c.All) > 0:
		for i := range c.All {
			if !matchCondition(&c.All[i], history) {
				return false
			}
		}
		return true
	case c.QuestionRef != "" && c.AnswerRef != "":
		for _, rec := range history {
			if sameID(c.QuestionRef, string(rec.QuestionID)) && sameID(c.AnswerRef, string(rec.AnswerID)) {
				return true
			}
		}
		return false
	}
	return false
}

// sameID compares a rule reference with a runtime id across the two id
// forms. When both sides reduce to a number the numbers are compared, so
// "12" matches "q_12"; otherwise the raw strings must be equal.
func sameID(ref, actual string) bool {
	if ref == actual {
		return true
	}
	rn, rok := numericPart(ref)
	an, aok := numericPart(actual)
	return rok && aok && rn == an
}

// numericPart extracts the numeric identity of an id, stripping a single
// type prefix like "q_" or "a_" if present.
func numericPart(s string) (int64, bool) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
