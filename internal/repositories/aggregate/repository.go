package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	table         = "aggregates"
	presenceTable = "aggregated_presence"
)

var columns = []string{
	"id", "name_raw_record_id", "display_name", "display_name_source", "lookup_key", "photo_id",
	"send_to_voicemail", "custom_ringtone", "last_time_contacted", "times_contacted", "starred",
	"has_phone_number", "is_restricted",
}

// Repository handles aggregate persistence
type Repository struct {
	db     database.DB
	flavor sqlbuilder.Flavor
	logger ectologger.Logger
}

// NewRepository creates a new aggregate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		flavor: database.Flavor(db),
		logger: logger,
	}
}

// CreateAggregate inserts an empty aggregate and its presence row.
func (r *Repository) CreateAggregate(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.CreateAggregate")
	defer span.End()

	exec := r.db.Executor(ctx)

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("lookup_key")
	ib.Values("")

	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := exec.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create aggregate")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create aggregate")
	}

	pb := r.flavor.NewInsertBuilder()
	pb.InsertInto(presenceTable)
	pb.Cols("aggregate_id")
	pb.Values(id)

	query, args = pb.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create aggregate presence")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create aggregate presence")
	}

	return id, nil
}

// GetAggregate retrieves an aggregate by ID
func (r *Repository) GetAggregate(ctx context.Context, id int64) (*models.Aggregate, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.GetAggregate")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var aggregate models.Aggregate
	if err := r.db.Executor(ctx).GetContext(ctx, &aggregate, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "aggregate %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get aggregate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get aggregate")
	}

	return &aggregate, nil
}

// ListAggregates retrieves the aggregates with the given ids in ascending id order.
func (r *Repository) ListAggregates(ctx context.Context, ids []int64) ([]models.Aggregate, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.ListAggregates")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.In("id", database.Args(ids)...))
	sb.OrderBy("id")

	query, args := sb.Build()
	var aggregates []models.Aggregate
	if err := r.db.Executor(ctx).SelectContext(ctx, &aggregates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list aggregates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aggregates")
	}

	return aggregates, nil
}

// UpdateAggregate stores the full derived state.
func (r *Repository) UpdateAggregate(ctx context.Context, id int64, state models.AggregateState) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.UpdateAggregate")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("name_raw_record_id", state.NameRawRecordID),
		ub.Assign("display_name", state.DisplayName),
		ub.Assign("display_name_source", state.DisplayNameSource),
		ub.Assign("lookup_key", state.LookupKey),
		ub.Assign("photo_id", state.PhotoID),
		ub.Assign("send_to_voicemail", state.SendToVoicemail),
		ub.Assign("custom_ringtone", state.CustomRingtone),
		ub.Assign("last_time_contacted", state.LastTimeContacted),
		ub.Assign("times_contacted", state.TimesContacted),
		ub.Assign("starred", state.Starred),
		ub.Assign("has_phone_number", state.HasPhoneNumber),
		ub.Assign("is_restricted", state.IsRestricted),
	)
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update aggregate")
}

func (r *Repository) UpdateDisplayName(ctx context.Context, id int64, nameRawRecordID *int64, displayName *string, source models.DisplayNameSource) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.UpdateDisplayName")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("name_raw_record_id", nameRawRecordID),
		ub.Assign("display_name", displayName),
		ub.Assign("display_name_source", source),
	)
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update aggregate display name")
}

func (r *Repository) UpdateLookupKey(ctx context.Context, id int64, lookupKey string) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.UpdateLookupKey")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("lookup_key", lookupKey))
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update aggregate lookup key")
}

func (r *Repository) UpdatePhotoID(ctx context.Context, id int64, photoID *int64) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.UpdatePhotoID")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("photo_id", photoID))
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update aggregate photo")
}

func (r *Repository) UpdateHasPhoneNumber(ctx context.Context, id int64, hasPhoneNumber bool) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.UpdateHasPhoneNumber")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("has_phone_number", hasPhoneNumber))
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update aggregate phone flag")
}

// DeleteAggregate removes the aggregate and its presence row.
func (r *Repository) DeleteAggregate(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "aggregate.Repository.DeleteAggregate")
	defer span.End()

	pb := r.flavor.NewDeleteBuilder()
	pb.DeleteFrom(presenceTable)
	pb.Where(pb.Equal("aggregate_id", id))

	query, args := pb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete aggregate presence")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete aggregate presence")
	}

	dlb := r.flavor.NewDeleteBuilder()
	dlb.DeleteFrom(table)
	dlb.Where(dlb.Equal("id", id))

	if err := r.execOne(ctx, dlb, id, "delete aggregate"); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"aggregate_id": id}).Debug("Deleted aggregate")
	return nil
}

type builder interface {
	Build() (string, []any)
}

func (r *Repository) execOne(ctx context.Context, b builder, id int64, action string) error {
	query, args := b.Build()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"aggregate_id": id}).Errorf("Failed to %s", action)
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to %s", action))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "aggregate %d not found", id)
	}
	return nil
}
