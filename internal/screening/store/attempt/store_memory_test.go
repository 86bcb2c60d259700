package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amora/internal/screening/models"
	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

type AttemptStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
	user  id.UserID
}

func TestAttemptStoreSuite(t *testing.T) {
	suite.Run(t, new(AttemptStoreSuite))
}

func (s *AttemptStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.user = id.NewUserID()
}

func (s *AttemptStoreSuite) open(started time.Time) *models.ScreeningAttempt {
	a := &models.ScreeningAttempt{
		ID:            id.NewAttemptID(),
		UserID:        s.user,
		ConfigVersion: 3,
		Outcome:       models.OutcomeInProgress,
		StartedAt:     started,
	}
	s.Require().NoError(s.store.Open(s.ctx, a))
	return a
}

func (s *AttemptStoreSuite) TestSingleOpenAttemptPerUser() {
	s.open(time.Now().UTC())

	err := s.store.Open(s.ctx, &models.ScreeningAttempt{
		ID: id.NewAttemptID(), UserID: s.user, Outcome: models.OutcomeInProgress,
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *AttemptStoreSuite) TestSnapshotAndClose() {
	started := time.Now().UTC()
	s.open(started)

	answers := []models.AnswerRecord{{QuestionID: "q_1", AnswerID: "a_2", Weight: 3, Phase: models.Phase1}}
	scores := map[models.PhaseID]models.PhaseScore{models.Phase1: {Sum: 3, MaxWeight: 3}}
	s.Require().NoError(s.store.Snapshot(s.ctx, s.user, answers, scores))

	open, err := s.store.GetOpen(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().NotNil(open)
	s.Len(open.Answers, 1)

	completed := started.Add(time.Minute)
	s.Require().NoError(s.store.Close(s.ctx, s.user, models.OutcomeCooldown, answers, scores, completed))

	open, err = s.store.GetOpen(s.ctx, s.user)
	s.Require().NoError(err)
	s.Nil(open, "closed attempt is no longer open")

	latest, err := s.store.LatestCompleted(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(models.OutcomeCooldown, latest.Outcome)
	s.Equal(started.Add(models.CooldownWindow), latest.CooldownUntil())
}

func (s *AttemptStoreSuite) TestLatestCompletedPicksNewest() {
	base := time.Now().UTC()

	s.open(base)
	s.Require().NoError(s.store.Close(s.ctx, s.user, models.OutcomeLegacyFailed, nil, nil, base.Add(time.Hour)))
	s.open(base.Add(2 * time.Hour))
	s.Require().NoError(s.store.Close(s.ctx, s.user, models.OutcomeApproved, nil, nil, base.Add(3*time.Hour)))

	latest, err := s.store.LatestCompleted(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(models.OutcomeApproved, latest.Outcome)

	all, err := s.store.ListByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *AttemptStoreSuite) TestSnapshotWithoutOpenAttempt() {
	err := s.store.Snapshot(s.ctx, s.user, nil, nil)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
