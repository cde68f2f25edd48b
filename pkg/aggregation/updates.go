package aggregation

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// UpdateAggregateData recomputes every derived attribute of an aggregate.
func (e *Engine) UpdateAggregateData(ctx context.Context, aggregateID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		return e.composer.UpdateAggregateData(ctx, aggregateID)
	})
}

func (e *Engine) UpdateDisplayName(ctx context.Context, aggregateID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		return e.composer.UpdateDisplayName(ctx, aggregateID)
	})
}

// UpdateDisplayNameForRawRecord recomputes the display name of the aggregate holding the raw record.
func (e *Engine) UpdateDisplayNameForRawRecord(ctx context.Context, rawRecordID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		record, err := e.store.GetRawRecord(ctx, rawRecordID)
		if err != nil {
			return err
		}
		if record.AggregateID == nil {
			return nil
		}
		return e.composer.UpdateDisplayName(ctx, *record.AggregateID)
	})
}

func (e *Engine) UpdateLookupKey(ctx context.Context, aggregateID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		return e.composer.UpdateLookupKey(ctx, aggregateID)
	})
}

func (e *Engine) UpdatePhotoID(ctx context.Context, aggregateID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		return e.composer.UpdatePhotoID(ctx, aggregateID)
	})
}

func (e *Engine) UpdateHasPhoneNumber(ctx context.Context, aggregateID int64) error {
	return e.write(ctx, func(ctx context.Context) error {
		return e.composer.UpdateHasPhoneNumber(ctx, aggregateID)
	})
}

// SetNameVerified marks the raw record's name as the one the user picked and clears the flag
// on every other member of its aggregate.
func (e *Engine) SetNameVerified(ctx context.Context, rawRecordID int64) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.SetNameVerified")
	defer span.End()

	return e.write(ctx, func(ctx context.Context) error {
		record, err := e.store.GetRawRecord(ctx, rawRecordID)
		if err != nil {
			return err
		}
		if err := e.store.SetNameVerified(ctx, rawRecordID, true); err != nil {
			return err
		}
		if record.AggregateID == nil {
			return nil
		}
		if err := e.store.ClearNameVerified(ctx, *record.AggregateID, rawRecordID); err != nil {
			return err
		}
		return e.composer.UpdateDisplayName(ctx, *record.AggregateID)
	})
}

// SetAggregationException stores a user override for a pair of raw records and places both
// again. The automatic kind removes the override.
func (e *Engine) SetAggregationException(ctx context.Context, rawRecordID1, rawRecordID2 int64, kind models.ExceptionKind) (*models.AggregationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.SetAggregationException")
	defer span.End()

	if rawRecordID1 == rawRecordID2 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "an aggregation exception needs two different raw records")
	}

	exception := models.NewAggregationException(rawRecordID1, rawRecordID2, kind)
	result, err := e.InWriteTransaction(ctx, func(ctx context.Context) error {
		for _, id := range []int64{exception.RawRecordID1, exception.RawRecordID2} {
			if _, err := e.store.GetRawRecord(ctx, id); err != nil {
				return err
			}
		}

		var err error
		if kind == models.ExceptionKindAutomatic {
			err = e.store.DeleteAggregationException(ctx, exception.RawRecordID1, exception.RawRecordID2)
		} else {
			err = e.store.UpsertAggregationException(ctx, exception)
		}
		if err != nil {
			return err
		}

		e.resolver.Invalidate()
		e.MarkForAggregation(ctx, exception.RawRecordID1, models.AggregationModeDefault, true)
		e.MarkForAggregation(ctx, exception.RawRecordID2, models.AggregationModeDefault, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id_1": exception.RawRecordID1,
		"raw_record_id_2": exception.RawRecordID2,
		"kind":            kind.String(),
	}).Info("Aggregation exception set")

	return result, nil
}

// LookupAggregate resolves a lookup key to the aggregate that currently holds the first
// segment still matching a raw record. Segments with a source id are matched on it; others
// are matched on raw record id, account and display name.
func (e *Engine) LookupAggregate(ctx context.Context, lookupKey string) (*models.Aggregate, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.LookupAggregate")
	defer span.End()

	segments, err := merging.ParseLookupKey(lookupKey)
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid lookup key: %s", err.Error())
	}

	for _, segment := range segments {
		record, err := e.findSegment(ctx, segment)
		if err != nil {
			return nil, err
		}
		if record == nil || record.AggregateID == nil {
			continue
		}
		return e.store.GetAggregate(ctx, *record.AggregateID)
	}

	return nil, httperror.NewHTTPError(http.StatusNotFound, "no aggregate matches the lookup key")
}

func (e *Engine) findSegment(ctx context.Context, segment merging.LookupKeySegment) (*models.RawRecord, error) {
	if segment.SourceID != "" {
		record, err := e.store.FindRawRecordBySourceID(ctx, segment.Account, segment.SourceID)
		if err != nil {
			if httperror.GetStatusCode(err) == http.StatusNotFound {
				return nil, nil
			}
			return nil, err
		}
		return record, nil
	}

	record, err := e.store.GetRawRecord(ctx, segment.RawRecordID)
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if record.Account != segment.Account || record.DisplayName != segment.DisplayName {
		return nil, nil
	}
	return record, nil
}

// write runs fn inside a transaction under the writer lock.
func (e *Engine) write(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.store.InTransaction(ctx, fn)
}
