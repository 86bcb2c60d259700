//go:build integration

package lock_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amora/internal/screening/store/lock"
	"amora/pkg/platform/sentinel"
	"amora/pkg/testutil/containers"

	id "amora/pkg/domain"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *lock.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.locker = lock.NewRedisLocker(s.redis.Client, 5*time.Second, logger)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// TestMutualExclusion verifies only one of many concurrent acquirers wins
// the per-user lease.
func (s *RedisLockerSuite) TestMutualExclusion() {
	ctx := context.Background()
	userID := id.NewUserID()
	const goroutines = 30

	var wg sync.WaitGroup
	var acquired atomic.Int32
	var conflicts atomic.Int32
	releases := make(chan func(), goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := s.locker.Acquire(ctx, userID)
			switch {
			case err == nil:
				acquired.Add(1)
				releases <- release
			case err == sentinel.ErrConflict:
				conflicts.Add(1)
			default:
				s.T().Errorf("unexpected acquire error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(releases)

	s.Equal(int32(1), acquired.Load(), "exactly one holder")
	s.Equal(int32(goroutines-1), conflicts.Load())

	for release := range releases {
		release()
	}

	// lease is free again after release
	release, err := s.locker.Acquire(ctx, userID)
	s.Require().NoError(err)
	release()
}

// TestIndependentUsers verifies leases do not interfere across users.
func (s *RedisLockerSuite) TestIndependentUsers() {
	ctx := context.Background()

	releaseA, err := s.locker.Acquire(ctx, id.NewUserID())
	s.Require().NoError(err)
	defer releaseA()

	releaseB, err := s.locker.Acquire(ctx, id.NewUserID())
	s.Require().NoError(err)
	defer releaseB()
}

// TestReleaseDoesNotClobberNewHolder verifies a stale release never frees a
// lease that expired and was reacquired by someone else.
func (s *RedisLockerSuite) TestReleaseDoesNotClobberNewHolder() {
	ctx := context.Background()
	userID := id.NewUserID()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shortLocker := lock.NewRedisLocker(s.redis.Client, 200*time.Millisecond, logger)

	staleRelease, err := shortLocker.Acquire(ctx, userID)
	s.Require().NoError(err)

	// let the first lease expire, then a second holder takes over
	time.Sleep(300 * time.Millisecond)

	release, err := s.locker.Acquire(ctx, userID)
	s.Require().NoError(err)
	defer release()

	staleRelease()

	val, err := s.redis.Client.Get(ctx, lock.Key(userID)).Result()
	s.Require().NoError(err, "new holder's lease must survive the stale release")
	s.NotEmpty(val)
}

// TestLeaseExpiry verifies an abandoned lease frees itself via TTL.
func (s *RedisLockerSuite) TestLeaseExpiry() {
	ctx := context.Background()
	userID := id.NewUserID()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shortLocker := lock.NewRedisLocker(s.redis.Client, 200*time.Millisecond, logger)

	_, err := shortLocker.Acquire(ctx, userID)
	s.Require().NoError(err)

	_, err = shortLocker.Acquire(ctx, userID)
	s.ErrorIs(err, sentinel.ErrConflict)

	time.Sleep(300 * time.Millisecond)

	release, err := shortLocker.Acquire(ctx, userID)
	s.Require().NoError(err)
	release()
}
