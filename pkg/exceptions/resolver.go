// Package exceptions turns user-declared aggregation exceptions into hard matching constraints.
package exceptions

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/store"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Resolver applies the exceptions of a raw record to a matcher. It caches the set of raw
// record ids taking part in any exception until Invalidate is called.
type Resolver struct {
	store  store.ExceptionStore
	logger ectologger.Logger

	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewResolver(store store.ExceptionStore, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Invalidate drops the cached id set. It must be called whenever exceptions change.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = nil
}

// HasExceptions reports whether the raw record takes part in any exception.
func (r *Resolver) HasExceptions(ctx context.Context, rawRecordID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ids == nil {
		ids, err := r.store.ListExceptionRawRecordIDs(ctx)
		if err != nil {
			return false, err
		}
		r.ids = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			r.ids[id] = struct{}{}
		}
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"raw_record_ids": len(ids),
		}).Debug("Loaded aggregation exception ids")
	}

	_, ok := r.ids[rawRecordID]
	return ok, nil
}

// Resolve marks the aggregates of the other side of every exception as kept in or kept out.
// Exceptions whose other side is still pending or not placed yet are ignored. When any
// aggregate is kept in, the best of those is returned.
func (r *Resolver) Resolve(ctx context.Context, rawRecordID int64, matcher *matching.Matcher, isPending func(int64) bool) (int64, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "exceptions.Resolver.Resolve")
	defer span.End()

	has, err := r.HasExceptions(ctx, rawRecordID)
	if err != nil || !has {
		return 0, false, err
	}

	hits, err := r.store.ListAggregationExceptions(ctx, rawRecordID)
	if err != nil {
		return 0, false, err
	}

	keptIn := false
	for _, hit := range hits {
		if hit.OtherAggregateID == nil || (isPending != nil && isPending(hit.OtherRawRecordID)) {
			continue
		}
		switch hit.Kind {
		case models.ExceptionKindKeepTogether:
			matcher.KeepIn(*hit.OtherAggregateID)
			keptIn = true
		case models.ExceptionKindKeepSeparate:
			matcher.KeepOut(*hit.OtherAggregateID)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id": rawRecordID,
		"exceptions":    len(hits),
		"kept_in":       keptIn,
	}).Debug("Applied aggregation exceptions")

	if !keptIn {
		return 0, false, nil
	}

	aggregateID, status := matcher.PickBestMatch(matching.MaxScore, false)
	return aggregateID, status == matching.Matched, nil
}
