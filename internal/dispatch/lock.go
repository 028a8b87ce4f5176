// internal/dispatch/lock.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const scanLockKey = "notifier:scan:lock"

// RedisScanLock is a best-effort guard against overlapping scan passes.
// The external trigger offers no mutual exclusion, so two invocations
// can race; holding a short-TTL lock turns the overlap into a skipped
// pass instead of a duplicate delivery. It is advisory only and never a
// correctness requirement.
type RedisScanLock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

func NewRedisScanLock(client *redis.Client, ttl time.Duration) *RedisScanLock {
	return &RedisScanLock{client: client, ttl: ttl}
}

// Acquire takes the lock. Returns false when another pass holds it.
func (l *RedisScanLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, scanLockKey, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire scan lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lock if this instance still owns it. The TTL covers
// the case where the process dies mid-pass.
func (l *RedisScanLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}

	val, err := l.client.Get(ctx, scanLockKey).Result()
	if err == redis.Nil {
		l.token = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("release scan lock: %w", err)
	}
	if val != l.token {
		// Lock expired and was re-acquired elsewhere; not ours to delete.
		l.token = ""
		return nil
	}

	if err := l.client.Del(ctx, scanLockKey).Err(); err != nil {
		return fmt.Errorf("release scan lock: %w", err)
	}
	l.token = ""
	return nil
}
