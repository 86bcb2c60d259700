package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "amora/pkg/domain"
)

type ModelsSuite struct {
	suite.Suite
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

// ============================================================
// Audience segments and phases
// ============================================================

func (s *ModelsSuite) TestParseAudienceSegment() {
	s.Run("empty defaults to ALL", func() {
		seg, err := ParseAudienceSegment("")
		s.NoError(err)
		s.Equal(SegmentAll, seg)
	})

	s.Run("valid values pass through", func() {
		seg, err := ParseAudienceSegment("FEMALE")
		s.NoError(err)
		s.Equal(SegmentFemale, seg)
	})

	s.Run("unknown value rejected", func() {
		_, err := ParseAudienceSegment("OTHER")
		s.Error(err)
	})
}

func (s *ModelsSuite) TestPhaseProgression() {
	next, ok := Phase1.Next()
	s.True(ok)
	s.Equal(Phase2, next)

	next, ok = Phase3.Next()
	s.True(ok)
	s.Equal(Phase4, next)

	_, ok = Phase4.Next()
	s.False(ok, "final phase has no successor")

	s.True(Phase2.IsValid())
	s.False(PhaseID("phase_9").IsValid())
}

// ============================================================
// Outcomes
// ============================================================

func (s *ModelsSuite) TestOutcomeNormalization() {
	s.Equal(OutcomeCooldown, OutcomeLegacyFailed.Normalized())
	s.Equal(OutcomeApproved, OutcomeApproved.Normalized())

	s.True(OutcomeLegacyFailed.Terminal())
	s.True(OutcomeLifetimeIneligible.Terminal())
	s.False(OutcomeInProgress.Terminal())
}

func (s *ModelsSuite) TestPendingOutcomeNeverDowngrades() {
	st := &ScreeningState{CurrentPhase: Phase1}

	st.Upgrade(PendingOutcome{Type: PendingCooldown, Phase: Phase1, TriggeredBy: "threshold"})
	s.Equal(PendingCooldown, st.PendingOutcome.Type)

	st.Upgrade(PendingOutcome{Type: PendingLifetime, Phase: Phase1, TriggeredBy: "rule_7"})
	s.Equal(PendingLifetime, st.PendingOutcome.Type)

	// a later cooldown must not displace the lifetime verdict
	st.Upgrade(PendingOutcome{Type: PendingCooldown, Phase: Phase2})
	s.Equal(PendingLifetime, st.PendingOutcome.Type)
	s.Equal("rule_7", st.PendingOutcome.TriggeredBy)
}

func (s *ModelsSuite) TestLegacyFailedPendingTreatedAsCooldown() {
	st := &ScreeningState{
		PendingOutcome: &PendingOutcome{Type: PendingLegacyFailed, Phase: Phase1},
	}

	// equal severity keeps the earlier trigger
	st.Upgrade(PendingOutcome{Type: PendingCooldown, Phase: Phase2})
	s.Equal(PendingLegacyFailed, st.PendingOutcome.Type)

	s.Equal(OutcomeCooldown, st.PendingOutcome.Type.Outcome())

	st.Upgrade(PendingOutcome{Type: PendingLifetime, Phase: Phase2})
	s.Equal(PendingLifetime, st.PendingOutcome.Type)
}

// ============================================================
// Scoring state
// ============================================================

func (s *ModelsSuite) TestRecordAccumulatesPhaseScores() {
	st := &ScreeningState{CurrentPhase: Phase1}

	st.Record([]AnswerRecord{
		{QuestionID: "q_1", AnswerID: "a_1", Weight: 2, Phase: Phase1},
	}, 2, 2)
	st.Record([]AnswerRecord{
		{QuestionID: "q_2", AnswerID: "a_5", Weight: 4, Phase: Phase1},
		{QuestionID: "q_2", AnswerID: "a_6", Weight: 1, Phase: Phase1},
	}, 4, 4)

	ps := st.Score(Phase1)
	s.InDelta(6.0, ps.Sum, 1e-9)
	s.InDelta(4.0, ps.MaxWeight, 1e-9)
	s.Len(st.Answers, 3)
}

func (s *ModelsSuite) TestRecomputePhaseScoresMatchesLiveAccumulation() {
	st := &ScreeningState{CurrentPhase: Phase1}
	st.Record([]AnswerRecord{
		{QuestionID: "q_1", AnswerID: "a_1", Weight: 3, Phase: Phase1},
	}, 3, 3)
	// multi-select with under-selection penalty on the first record
	st.Record([]AnswerRecord{
		{QuestionID: "q_2", AnswerID: "a_4", Weight: 5, Phase: Phase1, Penalty: 1},
		{QuestionID: "q_2", AnswerID: "a_5", Weight: 2, Phase: Phase1},
	}, 6, 5)

	st.EnterPhase(Phase2, []id.QuestionID{"q_9"})
	st.Record([]AnswerRecord{
		{QuestionID: "q_9", AnswerID: "a_20", Weight: 1, Phase: Phase2},
	}, 1, 1)

	replayed := RecomputePhaseScores(st.Answers)
	s.Equal(st.PhaseScores, replayed)
	s.InDelta(9.0, replayed[Phase1].Sum, 1e-9)
	s.InDelta(5.0, replayed[Phase1].MaxWeight, 1e-9)
}

func (s *ModelsSuite) TestEnterPhaseReplacesServedSet() {
	st := &ScreeningState{
		CurrentPhase:         Phase1,
		CurrentQuestionIndex: 3,
		ServedQuestionIDs:    []id.QuestionID{"q_1", "q_2", "q_3"},
	}

	_, ok := st.CurrentQuestionID()
	s.False(ok, "index past the served set means exhaustion")

	st.EnterPhase(Phase4, []id.QuestionID{"q_40", "q_41"})
	s.Equal(Phase4, st.CurrentPhase)
	s.Equal(0, st.CurrentQuestionIndex)

	q, ok := st.CurrentQuestionID()
	s.True(ok)
	s.Equal(id.QuestionID("q_40"), q)
}

func (s *ModelsSuite) TestCooldownUntil() {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &ScreeningAttempt{StartedAt: started, Outcome: OutcomeCooldown}
	s.Equal(started.Add(30*24*time.Hour), a.CooldownUntil())
}
