package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const calendarLockPrefix = "calendar:%d:lock"

// releaseScript deletes the lock key only if it still holds our token, so a
// slow reconciliation that outlives the TTL cannot release a successor's lock.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisCalendarLock serializes reconciliation per calendar across instances
// with a SET NX + TTL keyed lock.
type RedisCalendarLock struct {
	client       *redis.Client
	ttl          time.Duration
	retryEvery   time.Duration
	acquireLimit time.Duration
}

func NewRedisCalendarLock(client *redis.Client) *RedisCalendarLock {
	return &RedisCalendarLock{
		client:       client,
		ttl:          10 * time.Second,
		retryEvery:   50 * time.Millisecond,
		acquireLimit: 5 * time.Second,
	}
}

func (l *RedisCalendarLock) Acquire(ctx context.Context, calendarID int64) (func(), error) {
	key := fmt.Sprintf(calendarLockPrefix, calendarID)
	token := uuid.New().String()

	deadline := time.Now().Add(l.acquireLimit)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire calendar lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for calendar %d lock", calendarID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}

	release := func() {
		// Best effort: the TTL reclaims the lock if the release is lost.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.client.Eval(releaseCtx, releaseScript, []string{key}, token)
	}
	return release, nil
}
