package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

type MemoryLockerSuite struct {
	suite.Suite
}

func TestMemoryLockerSuite(t *testing.T) {
	suite.Run(t, new(MemoryLockerSuite))
}

func (s *MemoryLockerSuite) TestLeaseIsExclusivePerUser() {
	locker := NewMemoryLocker()
	ctx := context.Background()
	user := id.NewUserID()
	other := id.NewUserID()

	release, err := locker.Acquire(ctx, user)
	s.Require().NoError(err)

	_, err = locker.Acquire(ctx, user)
	s.ErrorIs(err, sentinel.ErrConflict, "second acquire for the same user must fail")

	otherRelease, err := locker.Acquire(ctx, other)
	s.Require().NoError(err, "leases are per user")
	otherRelease()

	release()
	release2, err := locker.Acquire(ctx, user)
	s.Require().NoError(err, "released lease can be retaken")
	release2()
}

func (s *MemoryLockerSuite) TestKeyFormat() {
	user := id.NewUserID()
	s.Equal("screening:lock:"+user.String(), Key(user))
}
