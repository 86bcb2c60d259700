package lifetime

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"amora/internal/screening/models"
)

type LifetimeSuite struct {
	suite.Suite
}

func TestLifetimeSuite(t *testing.T) {
	suite.Run(t, new(LifetimeSuite))
}

// ============================================================
// Id normalization
// ============================================================

func (s *LifetimeSuite) TestSameIDAcrossForms() {
	s.True(sameID("q_12", "q_12"))
	s.True(sameID("12", "q_12"), "bare numeric ref matches prefixed runtime id")
	s.True(sameID("a_34", "34"))
	s.False(sameID("12", "q_13"))
	s.False(sameID("abc", "q_abc_x"))
	s.True(sameID("weird-id", "weird-id"), "non-numeric ids fall back to exact match")
}

// ============================================================
// Condition trees
// ============================================================

func (s *LifetimeSuite) history() []models.AnswerRecord {
	return []models.AnswerRecord{
		{QuestionID: "q_1", AnswerID: "a_10", Weight: 2, Phase: models.Phase1},
		{QuestionID: "q_2", AnswerID: "a_20", Weight: 3, Phase: models.Phase1},
		{QuestionID: "q_5", AnswerID: "a_52", Weight: 0, Phase: models.Phase2},
	}
}

func (s *LifetimeSuite) TestLeafMatchesPairOnSameRecord() {
	leaf := models.RuleCondition{QuestionRef: "2", AnswerRef: "20"}
	s.True(matchCondition(&leaf, s.history()))

	// question and answer from different records must not combine
	cross := models.RuleCondition{QuestionRef: "q_1", AnswerRef: "a_20"}
	s.False(matchCondition(&cross, s.history()))
}

func (s *LifetimeSuite) TestNestedAnyAll() {
	cond := models.RuleCondition{
		All: []models.RuleCondition{
			{QuestionRef: "q_1", AnswerRef: "a_10"},
			{Any: []models.RuleCondition{
				{QuestionRef: "q_9", AnswerRef: "a_90"},
				{QuestionRef: "5", AnswerRef: "52"},
			}},
		},
	}
	s.True(matchCondition(&cond, s.history()))

	cond.All[0].AnswerRef = "a_11"
	s.False(matchCondition(&cond, s.history()))
}

func (s *LifetimeSuite) TestEmptyCompositeNeverMatches() {
	s.False(matchCondition(&models.RuleCondition{}, s.history()))
	s.False(matchCondition(&models.RuleCondition{QuestionRef: "q_1"}, s.history()),
		"leaf without an answer ref is inert")
}

// ============================================================
// Evaluate
// ============================================================

func (s *LifetimeSuite) TestHardBanWeightWinsWithoutRules() {
	history := []models.AnswerRecord{
		{QuestionID: "q_3", AnswerID: "a_31", Weight: 999999, Phase: models.Phase1},
	}
	v := Evaluate(history, nil, 999999)
	s.Require().NotNil(v)
	s.Equal(HardBanReason, v.RuleID)
}

func (s *LifetimeSuite) TestRulesCheckedInOrdinalOrder() {
	rules := []models.LifetimeRule{
		{ID: "rule_a", Ordinal: 1, Condition: models.RuleCondition{QuestionRef: "q_2", AnswerRef: "a_20"}},
		{ID: "rule_b", Ordinal: 2, Condition: models.RuleCondition{QuestionRef: "q_1", AnswerRef: "a_10"}},
	}
	v := Evaluate(s.history(), rules, 999999)
	s.Require().NotNil(v)
	s.Equal("rule_a", v.RuleID, "first matching rule names the verdict")
}

func (s *LifetimeSuite) TestEligibleHistoryReturnsNil() {
	rules := []models.LifetimeRule{
		{ID: "rule_x", Condition: models.RuleCondition{QuestionRef: "q_7", AnswerRef: "a_70"}},
	}
	s.Nil(Evaluate(s.history(), rules, 999999))
	s.Nil(Evaluate(nil, rules, 999999), "empty history is eligible")
}
