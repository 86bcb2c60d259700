package scoring

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"amora/internal/screening/models"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

type ScoringSuite struct {
	suite.Suite
	question *models.Question
	resolved Resolved
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringSuite))
}

func (s *ScoringSuite) SetupTest() {
	s.question = &models.Question{
		ID:            "q_10",
		AllowMultiple: true,
		Answers: []models.AnswerOption{
			{ID: "a_1", Weight: 0},
			{ID: "a_2", Weight: 2},
			{ID: "a_3", Weight: 5},
		},
	}
	s.resolved = Resolved{
		Weights: map[id.AnswerID]float64{
			"a_1": 0,
			"a_2": 2,
			"a_3": 5,
		},
	}
}

// ============================================================
// Multi-select scoring
// ============================================================

func (s *ScoringSuite) TestMultiSelectUsesMaxNotSum() {
	r, err := Score(s.question, s.resolved, []id.AnswerID{"a_2", "a_3"})
	s.Require().NoError(err)

	s.InDelta(5.0, r.MaxSelectedWeight, 1e-9)
	s.InDelta(5.0, r.QuestionScore, 1e-9, "two selected weights must not be summed")
	s.Equal([]float64{2, 5}, r.PerAnswerWeights)
}

func (s *ScoringSuite) TestDuplicateSelectionsCollapse() {
	r, err := Score(s.question, s.resolved, []id.AnswerID{"a_3", "a_3", "a_2"})
	s.Require().NoError(err)

	s.Equal([]id.AnswerID{"a_3", "a_2"}, r.Selected)
	s.InDelta(5.0, r.QuestionScore, 1e-9)
}

func (s *ScoringSuite) TestUnderSelectionPenalty() {
	s.resolved.MinSelectionsRequired = 2
	s.resolved.MinSelectionsPenalty = 1

	r, err := Score(s.question, s.resolved, []id.AnswerID{"a_2"})
	s.Require().NoError(err)

	s.InDelta(2.0, r.MaxSelectedWeight, 1e-9)
	s.InDelta(1.0, r.PenaltyApplied, 1e-9)
	s.InDelta(3.0, r.QuestionScore, 1e-9, "penalty adds to the max, never replaces it")
}

func (s *ScoringSuite) TestMeetingMinimumAvoidsPenalty() {
	s.resolved.MinSelectionsRequired = 2
	s.resolved.MinSelectionsPenalty = 1

	r, err := Score(s.question, s.resolved, []id.AnswerID{"a_1", "a_2"})
	s.Require().NoError(err)

	s.Zero(r.PenaltyApplied)
	s.InDelta(2.0, r.QuestionScore, 1e-9)
}

func (s *ScoringSuite) TestPenaltyIgnoredForSingleSelectQuestions() {
	single := &models.Question{
		ID:      "q_11",
		Answers: []models.AnswerOption{{ID: "a_9", Weight: 4}},
	}
	res := Resolved{
		Weights:               map[id.AnswerID]float64{"a_9": 4},
		MinSelectionsRequired: 3,
		MinSelectionsPenalty:  2,
	}

	r, err := Score(single, res, []id.AnswerID{"a_9"})
	s.Require().NoError(err)
	s.Zero(r.PenaltyApplied)
	s.InDelta(4.0, r.QuestionScore, 1e-9)
}

// ============================================================
// Selection validation
// ============================================================

func (s *ScoringSuite) TestRejectsMultipleAnswersOnSingleSelect() {
	s.question.AllowMultiple = false

	_, err := Score(s.question, s.resolved, []id.AnswerID{"a_1", "a_2"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}

func (s *ScoringSuite) TestRejectsEmptySelection() {
	_, err := Score(s.question, s.resolved, nil)
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}

func (s *ScoringSuite) TestRejectsForeignAnswer() {
	_, err := Score(s.question, s.resolved, []id.AnswerID{"a_99"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}

// ============================================================
// History records
// ============================================================

func (s *ScoringSuite) TestRecordsCarryPenaltyOnFirstRow() {
	s.resolved.MinSelectionsRequired = 3
	s.resolved.MinSelectionsPenalty = 1.5

	r, err := Score(s.question, s.resolved, []id.AnswerID{"a_3", "a_1"})
	s.Require().NoError(err)

	recs := Records(s.question, models.Phase2, r)
	s.Require().Len(recs, 2)
	s.InDelta(1.5, recs[0].Penalty, 1e-9)
	s.Zero(recs[1].Penalty)
	s.Equal(models.Phase2, recs[0].Phase)
	s.Equal(id.AnswerID("a_3"), recs[0].AnswerID)

	replayed := models.RecomputePhaseScores(recs)
	s.InDelta(r.QuestionScore, replayed[models.Phase2].Sum, 1e-9)
}
