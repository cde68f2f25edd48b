package aggregation

import (
	"context"
	"time"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

// Locker is a cross-process writer lock held for the duration of one write transaction.
type Locker interface {
	Lock(ctx context.Context) (release func(ctx context.Context) error, err error)
}

type writerKey struct{}

func holdsWriter(ctx context.Context) bool {
	held, _ := ctx.Value(writerKey{}).(bool)
	return held
}

// acquireWriter takes the single-writer lock unless ctx already holds it. The returned
// context marks the lock as held so nested calls do not block on it.
func (e *Engine) acquireWriter(ctx context.Context) (context.Context, func(), error) {
	if holdsWriter(ctx) {
		return ctx, func() {}, nil
	}

	start := time.Now()
	e.mu.Lock()

	release := func(context.Context) error { return nil }
	if e.locker != nil {
		r, err := e.locker.Lock(ctx)
		if err != nil {
			e.mu.Unlock()
			return ctx, nil, err
		}
		release = r
	}
	metrics.RecordLockWait(time.Since(start).Seconds())

	held := context.WithValue(ctx, writerKey{}, true)
	return held, func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Failed to release writer lock")
		}
		e.mu.Unlock()
	}, nil
}
