// Package lock provides a best-effort mutual exclusion per key across
// service replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Release frees a held lock. It is safe to call on a lock that has expired.
type Release func(ctx context.Context) error

type Locker interface {
	// Acquire tries to take key until wait elapses. acquired is false when the
	// lock is still held elsewhere; the caller decides whether to proceed.
	Acquire(ctx context.Context, key string, wait time.Duration) (release Release, acquired bool, err error)
}

// Noop always grants the lock.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (Release, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// unlockScript deletes the key only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, poll: 50 * time.Millisecond}
}

func (l *RedisLocker) Key(key string) string {
	return l.prefix + key
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (Release, bool, error) {
	k := l.Key(key)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("redis setnx %s: %w", k, err)
		}
		if ok {
			release := func(ctx context.Context) error {
				if err := unlockScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					return fmt.Errorf("redis unlock %s: %w", k, err)
				}
				return nil
			}
			return release, true, nil
		}
		if !time.Now().Before(deadline) {
			return nil, false, nil
		}

		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false, ctx.Err()
		case <-t.C:
		}
	}
}
