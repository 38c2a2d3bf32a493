package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// DefaultLockKey guards config refreshes shared by several server replicas.
const DefaultLockKey = "settlement:payroll_config:refresh"

// Locker hands out a short-lived Redis lock so only one replica refreshes the
// shared config cache per tick.
type Locker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
}

// NewLocker creates a locker; ttl bounds how long a crashed holder blocks
// the others.
func NewLocker(rdb redis.Scripter, key string, ttl time.Duration) *Locker {
	if key == "" {
		key = DefaultLockKey
	}
	return &Locker{client: redislock.New(rdb), key: key, ttl: ttl}
}

// TryLock obtains the lock without retrying. ok is false when another
// holder has it.
func (l *Locker) TryLock(ctx context.Context) (unlock func(), ok bool, err error) {
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain %s: %w", l.key, err)
	}
	return func() {
		// Release with a fresh context; the caller's may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, true, nil
}
