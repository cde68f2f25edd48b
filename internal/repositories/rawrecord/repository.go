package rawrecord

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/internal/repositories/namelookup"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	lookups "github.com/Ramsey-B/fern/pkg/namelookup"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	table        = "raw_records"
	detailsTable = "raw_record_details"
)

var columns = []string{
	"id", "aggregate_id", "account_type", "account_name", "source_id",
	"prefix", "given_name", "middle_name", "family_name", "suffix",
	"display_name", "display_name_source", "name_verified",
	"starred", "send_to_voicemail", "custom_ringtone", "last_time_contacted", "times_contacted",
	"is_restricted", "aggregation_mode",
}

var detailColumns = []string{"id", "raw_record_id", "kind", "value", "normalized_value", "is_primary", "is_super_primary"}

// Repository handles raw record and detail row persistence. Every write rebuilds the
// name lookup rows of the record.
type Repository struct {
	db      database.DB
	flavor  sqlbuilder.Flavor
	lookups *namelookup.Repository
	logger  ectologger.Logger
}

// NewRepository creates a new raw record repository
func NewRepository(db database.DB, lookups *namelookup.Repository, logger ectologger.Logger) *Repository {
	return &Repository{
		db:      db,
		flavor:  database.Flavor(db),
		lookups: lookups,
		logger:  logger,
	}
}

// prepare normalizes the details and fills the derived display name.
func prepare(record *models.RawRecord, details []models.DetailRow) []models.DetailRow {
	prepared := make([]models.DetailRow, 0, len(details))
	for _, d := range details {
		d.RawRecordID = record.ID
		d.NormalizedValue = normalizers.NormalizeDetail(d.Kind, d.Value)
		prepared = append(prepared, d)
	}
	lookups.ApplyDisplayName(record, prepared)
	return prepared
}

// InsertRawRecord inserts the record with its details and returns the new id.
func (r *Repository) InsertRawRecord(ctx context.Context, record *models.RawRecord, details []models.DetailRow) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.InsertRawRecord")
	defer span.End()

	details = prepare(record, details)

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns[1:]...)
	ib.Values(r.values(record)...)

	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := r.db.Executor(ctx).GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert raw record")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert raw record")
	}
	record.ID = id

	if err := r.writeDetails(ctx, record, details); err != nil {
		return 0, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id": id,
		"account_type":  record.Type,
		"details":       len(details),
	}).Info("Inserted raw record")

	return id, nil
}

// UpdateRawRecord replaces the record fields and its details. Membership and the verified
// flag are owned by the aggregation engine and are left untouched.
func (r *Repository) UpdateRawRecord(ctx context.Context, record *models.RawRecord, details []models.DetailRow) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.UpdateRawRecord")
	defer span.End()

	details = prepare(record, details)

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("account_type", record.Type),
		ub.Assign("account_name", record.Name),
		ub.Assign("source_id", record.SourceID),
		ub.Assign("prefix", record.Prefix),
		ub.Assign("given_name", record.GivenName),
		ub.Assign("middle_name", record.MiddleName),
		ub.Assign("family_name", record.FamilyName),
		ub.Assign("suffix", record.Suffix),
		ub.Assign("display_name", record.DisplayName),
		ub.Assign("display_name_source", record.DisplayNameSource),
		ub.Assign("starred", record.Starred),
		ub.Assign("send_to_voicemail", record.SendToVoicemail),
		ub.Assign("custom_ringtone", record.CustomRingtone),
		ub.Assign("last_time_contacted", record.LastTimeContacted),
		ub.Assign("times_contacted", record.TimesContacted),
		ub.Assign("is_restricted", record.IsRestricted),
		ub.Assign("aggregation_mode", record.AggregationMode),
	)
	ub.Where(ub.Equal("id", record.ID))

	if err := r.execOne(ctx, ub, record.ID, "update raw record"); err != nil {
		return err
	}

	return r.writeDetails(ctx, record, details)
}

// DeleteRawRecord removes the record, its details, its lookup rows and its exceptions.
func (r *Repository) DeleteRawRecord(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.DeleteRawRecord")
	defer span.End()

	exec := r.db.Executor(ctx)

	if err := r.lookups.DeleteByRawRecord(ctx, id); err != nil {
		return err
	}

	dd := r.flavor.NewDeleteBuilder()
	dd.DeleteFrom(detailsTable)
	dd.Where(dd.Equal("raw_record_id", id))
	query, args := dd.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete raw record details")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete raw record details")
	}

	de := r.flavor.NewDeleteBuilder()
	de.DeleteFrom("aggregation_exceptions")
	de.Where(de.Or(de.Equal("raw_record_id_1", id), de.Equal("raw_record_id_2", id)))
	query, args = de.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete raw record exceptions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete raw record exceptions")
	}

	dr := r.flavor.NewDeleteBuilder()
	dr.DeleteFrom(table)
	dr.Where(dr.Equal("id", id))
	if err := r.execOne(ctx, dr, id, "delete raw record"); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"raw_record_id": id}).Info("Deleted raw record")
	return nil
}

// GetRawRecord retrieves a raw record by ID
func (r *Repository) GetRawRecord(ctx context.Context, id int64) (*models.RawRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.GetRawRecord")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var record models.RawRecord
	if err := r.db.Executor(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "raw record %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get raw record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get raw record")
	}

	return &record, nil
}

// FindRawRecordBySourceID retrieves a raw record by its account and source id
func (r *Repository) FindRawRecordBySourceID(ctx context.Context, account models.Account, sourceID string) (*models.RawRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.FindRawRecordBySourceID")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("account_type", account.Type),
		sb.Equal("account_name", account.Name),
		sb.Equal("source_id", sourceID),
	)
	sb.OrderBy("id")
	sb.Limit(1)

	query, args := sb.Build()
	var record models.RawRecord
	if err := r.db.Executor(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "raw record with source id %s not found", sourceID)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find raw record by source id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find raw record")
	}

	return &record, nil
}

// ListMembers returns the raw records of an aggregate in ascending id order.
func (r *Repository) ListMembers(ctx context.Context, aggregateID int64) ([]models.RawRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.ListMembers")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("aggregate_id", aggregateID))
	sb.OrderBy("id")

	query, args := sb.Build()
	var members []models.RawRecord
	if err := r.db.Executor(ctx).SelectContext(ctx, &members, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list aggregate members")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aggregate members")
	}

	return members, nil
}

// ListDetails returns detail rows of the raw records ordered by raw record id, then row id.
func (r *Repository) ListDetails(ctx context.Context, rawRecordIDs []int64, kinds ...models.DetailKind) ([]models.DetailRow, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.ListDetails")
	defer span.End()

	if len(rawRecordIDs) == 0 {
		return nil, nil
	}

	sb := r.flavor.NewSelectBuilder()
	sb.Select(detailColumns...)
	sb.From(detailsTable)
	sb.Where(sb.In("raw_record_id", database.Args(rawRecordIDs)...))
	if len(kinds) > 0 {
		sb.Where(sb.In("kind", database.Args(kinds)...))
	}
	sb.OrderBy("raw_record_id", "id")

	query, args := sb.Build()
	var details []models.DetailRow
	if err := r.db.Executor(ctx).SelectContext(ctx, &details, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list raw record details")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list raw record details")
	}

	return details, nil
}

// CountMembers returns the number of raw records in an aggregate.
func (r *Repository) CountMembers(ctx context.Context, aggregateID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.CountMembers")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("aggregate_id", aggregateID))

	return r.count(ctx, sb, "failed to count aggregate members")
}

// HasMemberFromAccount reports whether the aggregate holds a raw record other than excludeID from the account.
func (r *Repository) HasMemberFromAccount(ctx context.Context, aggregateID int64, account models.Account, excludeID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.HasMemberFromAccount")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(
		sb.Equal("aggregate_id", aggregateID),
		sb.Equal("account_type", account.Type),
		sb.Equal("account_name", account.Name),
		sb.NotEqual("id", excludeID),
	)

	n, err := r.count(ctx, sb, "failed to check aggregate accounts")
	return n > 0, err
}

// SetRawRecordAggregate moves a raw record into an aggregate.
func (r *Repository) SetRawRecordAggregate(ctx context.Context, rawRecordID, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.SetRawRecordAggregate")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("aggregate_id", aggregateID))
	ub.Where(ub.Equal("id", rawRecordID))

	return r.execOne(ctx, ub, rawRecordID, "set raw record aggregate")
}

func (r *Repository) SetNameVerified(ctx context.Context, rawRecordID int64, verified bool) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.SetNameVerified")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("name_verified", verified))
	ub.Where(ub.Equal("id", rawRecordID))

	return r.execOne(ctx, ub, rawRecordID, "set name verified")
}

// ClearNameVerified clears the verified flag of every member of the aggregate but one.
func (r *Repository) ClearNameVerified(ctx context.Context, aggregateID int64, exceptRawRecordID int64) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.ClearNameVerified")
	defer span.End()

	ub := r.flavor.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("name_verified", false))
	ub.Where(
		ub.Equal("aggregate_id", aggregateID),
		ub.NotEqual("id", exceptRawRecordID),
	)

	query, args := ub.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear name verified")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear name verified")
	}
	return nil
}

// FindDetailMatches returns placed raw records, other than rawRecordID, sharing a normalized
// detail value of the kind with it.
func (r *Repository) FindDetailMatches(ctx context.Context, rawRecordID int64, kind models.DetailKind, limit int) ([]models.DataHit, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.FindDetailMatches")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select("d2.raw_record_id", "r.aggregate_id").Distinct()
	sb.From(sb.As(detailsTable, "d1"))
	sb.Join(sb.As(detailsTable, "d2"), "d2.kind = d1.kind", "d2.normalized_value = d1.normalized_value")
	sb.Join(sb.As(table, "r"), "r.id = d2.raw_record_id")
	sb.Where(
		sb.Equal("d1.raw_record_id", rawRecordID),
		sb.Equal("d1.kind", kind),
		sb.NotEqual("d1.normalized_value", ""),
		sb.NotEqual("d2.raw_record_id", rawRecordID),
		sb.IsNotNull("r.aggregate_id"),
	)
	sb.OrderBy("d2.raw_record_id")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var hits []models.DataHit
	if err := r.db.Executor(ctx).SelectContext(ctx, &hits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find detail matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find detail matches")
	}

	return hits, nil
}

func (r *Repository) values(record *models.RawRecord) []any {
	return []any{
		record.AggregateID, record.Type, record.Name, record.SourceID,
		record.Prefix, record.GivenName, record.MiddleName, record.FamilyName, record.Suffix,
		record.DisplayName, record.DisplayNameSource, record.NameVerified,
		record.Starred, record.SendToVoicemail, record.CustomRingtone, record.LastTimeContacted, record.TimesContacted,
		record.IsRestricted, record.AggregationMode,
	}
}

// writeDetails replaces the detail rows and rebuilds the lookup rows of the record.
func (r *Repository) writeDetails(ctx context.Context, record *models.RawRecord, details []models.DetailRow) error {
	exec := r.db.Executor(ctx)

	dd := r.flavor.NewDeleteBuilder()
	dd.DeleteFrom(detailsTable)
	dd.Where(dd.Equal("raw_record_id", record.ID))
	query, args := dd.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear raw record details")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear raw record details")
	}

	if len(details) > 0 {
		ib := r.flavor.NewInsertBuilder()
		ib.InsertInto(detailsTable)
		ib.Cols(detailColumns[1:]...)
		for _, d := range details {
			ib.Values(record.ID, d.Kind, d.Value, d.NormalizedValue, d.IsPrimary, d.IsSuperPrimary)
		}
		query, args = ib.Build()
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to insert raw record details")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert raw record details")
		}
	}

	return r.lookups.Replace(ctx, record.ID, lookups.Build(record, details))
}

type builder interface {
	Build() (string, []any)
}

// execOne runs a statement that must affect the row with the given id.
func (r *Repository) execOne(ctx context.Context, b builder, id int64, action string) error {
	query, args := b.Build()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"raw_record_id": id}).Errorf("Failed to %s", action)
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to %s", action))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "raw record %d not found", id)
	}
	return nil
}

func (r *Repository) count(ctx context.Context, sb *sqlbuilder.SelectBuilder, message string) (int, error) {
	query, args := sb.Build()
	var n int
	if err := r.db.Executor(ctx).GetContext(ctx, &n, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count raw records")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, message)
	}
	return n, nil
}
