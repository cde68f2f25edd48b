package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

const DefaultKeyPrefix = "fern:lock:"

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held lock. Only the holder that set the value may release or extend it.
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// Locker hands out locks under a key prefix.
type Locker struct {
	client    *Client
	keyPrefix string
}

func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (l *Locker) lockKey(key string) string {
	return l.keyPrefix + key
}

// Acquire attempts to acquire a lock once
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.lockKey(key)
	lockValue := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", lockKey)

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// TryAcquire attempts to acquire a lock, retrying with backoff until timeout
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for time.Now().Before(deadline) {
		lock, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		}
	}

	return nil, ErrLockNotAcquired
}

func nextBackoff(backoff time.Duration) time.Duration {
	backoff *= 2
	if backoff > 500*time.Millisecond {
		backoff = 500 * time.Millisecond
	}
	return backoff
}

// Release releases the lock
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// Extend resets the lock's TTL
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.ttl = ttl
	return nil
}

// WriterLock serializes aggregation writes across service instances. The lock is kept
// alive while held, so a long pass does not outlive its TTL.
type WriterLock struct {
	locker  *Locker
	key     string
	ttl     time.Duration
	timeout time.Duration
}

func NewWriterLock(locker *Locker, key string, ttl, timeout time.Duration) *WriterLock {
	return &WriterLock{
		locker:  locker,
		key:     key,
		ttl:     ttl,
		timeout: timeout,
	}
}

// Lock blocks until the lock is held or the timeout passes.
func (w *WriterLock) Lock(ctx context.Context) (func(ctx context.Context) error, error) {
	lock, err := w.locker.TryAcquire(ctx, w.key, w.ttl, w.timeout)
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := lock.Extend(context.WithoutCancel(ctx), w.ttl); err != nil {
					w.locker.client.logger.WithContext(ctx).WithError(err).Warn("Failed to extend writer lock")
					return
				}
			}
		}
	}()

	return func(ctx context.Context) error {
		close(stop)
		wg.Wait()
		return lock.Release(ctx)
	}, nil
}
