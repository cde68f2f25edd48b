package aggregationexception

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "aggregation_exceptions"

// Repository handles aggregation exception persistence
type Repository struct {
	db     database.DB
	flavor sqlbuilder.Flavor
	logger ectologger.Logger
}

// NewRepository creates a new aggregation exception repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		flavor: database.Flavor(db),
		logger: logger,
	}
}

// ListAggregationExceptions returns the exceptions of a raw record seen from its side,
// with the current aggregate of the other raw record.
func (r *Repository) ListAggregationExceptions(ctx context.Context, rawRecordID int64) ([]models.ExceptionHit, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregationexception.Repository.ListAggregationExceptions")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	other := "CASE WHEN e.raw_record_id_1 = " + sb.Var(rawRecordID) + " THEN e.raw_record_id_2 ELSE e.raw_record_id_1 END"
	sb.Select(sb.As(other, "other_raw_record_id"), sb.As("r.aggregate_id", "other_aggregate_id"), "e.kind")
	sb.From(sb.As(table, "e"))
	sb.Join(sb.As("raw_records", "r"), "r.id = "+other)
	sb.Where(sb.Or(
		sb.Equal("e.raw_record_id_1", rawRecordID),
		sb.Equal("e.raw_record_id_2", rawRecordID),
	))
	sb.OrderBy("other_raw_record_id")

	query, args := sb.Build()
	var hits []models.ExceptionHit
	if err := r.db.Executor(ctx).SelectContext(ctx, &hits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list aggregation exceptions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aggregation exceptions")
	}

	return hits, nil
}

// ListExceptionRawRecordIDs returns every raw record id that takes part in an exception.
func (r *Repository) ListExceptionRawRecordIDs(ctx context.Context) ([]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregationexception.Repository.ListExceptionRawRecordIDs")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select("raw_record_id_1", "raw_record_id_2", "kind")
	sb.From(table)

	query, args := sb.Build()
	var exceptions []models.AggregationException
	if err := r.db.Executor(ctx).SelectContext(ctx, &exceptions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list exception raw record ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list exception raw record ids")
	}

	seen := make(map[int64]bool, len(exceptions)*2)
	ids := make([]int64, 0, len(exceptions)*2)
	for _, e := range exceptions {
		for _, id := range []int64{e.RawRecordID1, e.RawRecordID2} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

// UpsertAggregationException writes the exception, replacing the kind of an existing pair.
func (r *Repository) UpsertAggregationException(ctx context.Context, exception models.AggregationException) error {
	ctx, span := tracing.StartSpan(ctx, "aggregationexception.Repository.UpsertAggregationException")
	defer span.End()

	exception = models.NewAggregationException(exception.RawRecordID1, exception.RawRecordID2, exception.Kind)

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("raw_record_id_1", "raw_record_id_2", "kind")
	ib.Values(exception.RawRecordID1, exception.RawRecordID2, exception.Kind)
	ib.SQL("ON CONFLICT (raw_record_id_1, raw_record_id_2) DO UPDATE SET kind = excluded.kind")

	query, args := ib.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert aggregation exception")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert aggregation exception")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id_1": exception.RawRecordID1,
		"raw_record_id_2": exception.RawRecordID2,
		"kind":            exception.Kind.String(),
	}).Info("Upserted aggregation exception")

	return nil
}

// DeleteAggregationException removes the exception of a pair, if any.
func (r *Repository) DeleteAggregationException(ctx context.Context, rawRecordID1, rawRecordID2 int64) error {
	ctx, span := tracing.StartSpan(ctx, "aggregationexception.Repository.DeleteAggregationException")
	defer span.End()

	exception := models.NewAggregationException(rawRecordID1, rawRecordID2, models.ExceptionKindAutomatic)

	dlb := r.flavor.NewDeleteBuilder()
	dlb.DeleteFrom(table)
	dlb.Where(
		dlb.Equal("raw_record_id_1", exception.RawRecordID1),
		dlb.Equal("raw_record_id_2", exception.RawRecordID2),
	)

	query, args := dlb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete aggregation exception")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete aggregation exception")
	}

	return nil
}
