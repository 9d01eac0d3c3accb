package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/billing_backend/config"
)

var ErrLockNotObtained = errors.New("could not obtain lock")

// Locker serialises read-decide-write sequences on one key
// (tenant counter, document balance, product stock).
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

func LockKey(lockType string, parts ...any) string {
	key := lockType
	for _, p := range parts {
		key += ":" + fmt.Sprint(p)
	}
	return key
}

// RedisLocker is the distributed lock used when several API instances share a store.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redislock.Client, ttl time.Duration, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// NewRedisLockerFromEnv uses the global lock client and LOCK_TTL_SECONDS / LOCK_WAIT_SECONDS.
func NewRedisLockerFromEnv() *RedisLocker {
	ttl := time.Duration(config.IntFromEnv("LOCK_TTL_SECONDS", 30)) * time.Second
	wait := time.Duration(config.IntFromEnv("LOCK_WAIT_SECONDS", 10)) * time.Second
	return NewRedisLocker(config.GetRedisLock(), ttl, wait)
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	logger := config.GetLogger()
	if l.client == nil {
		err := errors.New("redis lock is nil")
		config.LogError(logger, "Locker", "Obtain", "Redis lock not initialized", key, err)
		return nil, errors.New("service not ready (redis lock not initialized)")
	}

	backoff := 50 * time.Millisecond
	retries := int(l.wait / backoff)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, "Locker", "Obtain", "Could not obtain lock", key, err)
		return nil, ErrLockNotObtained
	} else if err != nil {
		config.LogError(logger, "Locker", "Obtain", "Error obtaining lock", key, err)
		return nil, err
	}

	return func() {
		// release on a fresh context so a cancelled request still frees the key
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(logger, "Locker", "Release", "Error releasing lock", key, err)
		}
	}, nil
}

// LocalLocker is a keyed in-process lock for single-instance deployments and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			ch = make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ErrLockNotObtained
		}
	}
}
