package namelookup

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

const table = "name_lookup"

var hitColumns = []string{"nl.raw_record_id", "r.aggregate_id", "nl.normalized_name", "nl.name_kind"}

// Repository handles the normalized-name index
type Repository struct {
	db     database.DB
	flavor sqlbuilder.Flavor
	logger ectologger.Logger
}

// NewRepository creates a new name lookup repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		flavor: database.Flavor(db),
		logger: logger,
	}
}

// Replace rewrites every lookup row of a raw record.
func (r *Repository) Replace(ctx context.Context, rawRecordID int64, rows []models.NameLookup) error {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Repository.Replace")
	defer span.End()

	exec := r.db.Executor(ctx)

	dlb := r.flavor.NewDeleteBuilder()
	dlb.DeleteFrom(table)
	dlb.Where(dlb.Equal("raw_record_id", rawRecordID))

	query, args := dlb.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear name lookups")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear name lookups")
	}

	if len(rows) == 0 {
		return nil
	}

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("raw_record_id", "normalized_name", "name_kind")
	for _, row := range rows {
		ib.Values(rawRecordID, row.NormalizedName, row.Kind)
	}

	query, args = ib.Build()
	query += " ON CONFLICT DO NOTHING"
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert name lookups")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert name lookups")
	}

	return nil
}

// DeleteByRawRecord removes every lookup row of a raw record.
func (r *Repository) DeleteByRawRecord(ctx context.Context, rawRecordID int64) error {
	return r.Replace(ctx, rawRecordID, nil)
}

// ListNameLookups returns the lookup rows of a raw record.
func (r *Repository) ListNameLookups(ctx context.Context, rawRecordID int64, kinds ...models.NameKind) ([]models.NameLookup, error) {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Repository.ListNameLookups")
	defer span.End()

	sb := r.flavor.NewSelectBuilder()
	sb.Select("raw_record_id", "normalized_name", "name_kind")
	sb.From(table)
	sb.Where(sb.Equal("raw_record_id", rawRecordID))
	if len(kinds) > 0 {
		sb.Where(sb.In("name_kind", database.Args(kinds)...))
	}
	sb.OrderBy("name_kind", "normalized_name")

	query, args := sb.Build()
	var rows []models.NameLookup
	if err := r.db.Executor(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list name lookups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list name lookups")
	}

	return rows, nil
}

// FindNameLookupMatches returns lookup rows of placed raw records other than excludeID
// whose normalized name is one of names.
func (r *Repository) FindNameLookupMatches(ctx context.Context, names []string, kinds []models.NameKind, excludeID int64, limit int) ([]models.NameLookupHit, error) {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Repository.FindNameLookupMatches")
	defer span.End()

	if len(names) == 0 || len(kinds) == 0 {
		return nil, nil
	}

	sb := r.hitSelect()
	sb.Where(
		sb.In("nl.normalized_name", database.Args(names)...),
		sb.In("nl.name_kind", database.Args(kinds)...),
		sb.NotEqual("nl.raw_record_id", excludeID),
		sb.IsNotNull("r.aggregate_id"),
	)
	sb.OrderBy("nl.raw_record_id", "nl.name_kind")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.selectHits(ctx, sb, "failed to find name lookup matches")
}

// FindNameLookupsByPrefix returns lookup rows of placed raw records other than excludeID
// whose normalized name starts with prefix.
func (r *Repository) FindNameLookupsByPrefix(ctx context.Context, prefix string, kinds []models.NameKind, excludeID int64, limit int) ([]models.NameLookupHit, error) {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Repository.FindNameLookupsByPrefix")
	defer span.End()

	if prefix == "" || len(kinds) == 0 {
		return nil, nil
	}

	sb := r.hitSelect()
	sb.Where(
		sb.Like("nl.normalized_name", prefix+"%"),
		sb.In("nl.name_kind", database.Args(kinds)...),
		sb.NotEqual("nl.raw_record_id", excludeID),
		sb.IsNotNull("r.aggregate_id"),
	)
	sb.OrderBy("nl.raw_record_id", "nl.name_kind")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.selectHits(ctx, sb, "failed to find name lookups by prefix")
}

// ListAggregateNameLookups returns lookup rows of every member of the aggregates.
func (r *Repository) ListAggregateNameLookups(ctx context.Context, aggregateIDs []int64, kinds []models.NameKind) ([]models.NameLookupHit, error) {
	ctx, span := tracing.StartSpan(ctx, "namelookup.Repository.ListAggregateNameLookups")
	defer span.End()

	if len(aggregateIDs) == 0 || len(kinds) == 0 {
		return nil, nil
	}

	sb := r.hitSelect()
	sb.Where(
		sb.In("r.aggregate_id", database.Args(aggregateIDs)...),
		sb.In("nl.name_kind", database.Args(kinds)...),
	)
	sb.OrderBy("r.aggregate_id", "nl.raw_record_id", "nl.name_kind")

	return r.selectHits(ctx, sb, "failed to list aggregate name lookups")
}

func (r *Repository) hitSelect() *sqlbuilder.SelectBuilder {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(hitColumns...)
	sb.From(sb.As(table, "nl"))
	sb.Join(sb.As("raw_records", "r"), "r.id = nl.raw_record_id")
	return sb
}

func (r *Repository) selectHits(ctx context.Context, sb *sqlbuilder.SelectBuilder, message string) ([]models.NameLookupHit, error) {
	query, args := sb.Build()
	var hits []models.NameLookupHit
	if err := r.db.Executor(ctx).SelectContext(ctx, &hits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query name lookups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, message)
	}
	return hits, nil
}
