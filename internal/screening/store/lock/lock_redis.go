// Package lock serializes screening mutations per user. The engine computes
// outcomes without optimistic concurrency control; the per-user lease taken
// here is what makes that safe.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// releaseScript deletes the lease only if this holder still owns it, so an
// expired-and-reacquired lease is never released by the old holder.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker implements a TTL lease per user over Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// Key returns the lease key for a user.
func Key(userID id.UserID) string {
	return "screening:lock:" + userID.String()
}

// Acquire takes the user's lease. Returns sentinel.ErrConflict when another
// request holds it; callers surface that as a retryable conflict.
func (l *RedisLocker) Acquire(ctx context.Context, userID id.UserID) (func(), error) {
	key := Key(userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire screening lock: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrConflict
	}

	release := func() {
		// release runs during response teardown; do not inherit a
		// possibly-cancelled request context
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.ErrorContext(ctx, "screening lock release failed",
				"user_id", userID, "error", err)
		}
	}
	return release, nil
}
