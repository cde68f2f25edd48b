// Package store defines the record store the aggregation engine reads and writes.
// Every call is synchronous and runs inside the transaction carried by ctx, if any.
package store

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// RawRecordStore reads and writes raw records and their detail rows.
type RawRecordStore interface {
	InsertRawRecord(ctx context.Context, record *models.RawRecord, details []models.DetailRow) (int64, error)
	UpdateRawRecord(ctx context.Context, record *models.RawRecord, details []models.DetailRow) error
	DeleteRawRecord(ctx context.Context, id int64) error
	GetRawRecord(ctx context.Context, id int64) (*models.RawRecord, error)
	// ListMembers returns the raw records of an aggregate in ascending id order.
	ListMembers(ctx context.Context, aggregateID int64) ([]models.RawRecord, error)
	// ListDetails returns detail rows of the given raw records ordered by raw record id, then row id.
	ListDetails(ctx context.Context, rawRecordIDs []int64, kinds ...models.DetailKind) ([]models.DetailRow, error)
	CountMembers(ctx context.Context, aggregateID int64) (int, error)
	// HasMemberFromAccount reports whether the aggregate holds a raw record other than excludeID from the account.
	HasMemberFromAccount(ctx context.Context, aggregateID int64, account models.Account, excludeID int64) (bool, error)
	SetRawRecordAggregate(ctx context.Context, rawRecordID, aggregateID int64) error
	SetNameVerified(ctx context.Context, rawRecordID int64, verified bool) error
	ClearNameVerified(ctx context.Context, aggregateID int64, exceptRawRecordID int64) error
	FindRawRecordBySourceID(ctx context.Context, account models.Account, sourceID string) (*models.RawRecord, error)
	// FindDetailMatches returns placed raw records, other than rawRecordID, sharing a normalized
	// detail value of the given kind with it.
	FindDetailMatches(ctx context.Context, rawRecordID int64, kind models.DetailKind, limit int) ([]models.DataHit, error)
}

// NameLookupStore reads the normalized-name index.
type NameLookupStore interface {
	ListNameLookups(ctx context.Context, rawRecordID int64, kinds ...models.NameKind) ([]models.NameLookup, error)
	// FindNameLookupMatches returns lookup rows of placed raw records other than excludeID whose
	// normalized name equals one of names.
	FindNameLookupMatches(ctx context.Context, names []string, kinds []models.NameKind, excludeID int64, limit int) ([]models.NameLookupHit, error)
	// FindNameLookupsByPrefix returns lookup rows whose normalized name starts with prefix.
	FindNameLookupsByPrefix(ctx context.Context, prefix string, kinds []models.NameKind, excludeID int64, limit int) ([]models.NameLookupHit, error)
	// ListAggregateNameLookups returns lookup rows of every member of the given aggregates.
	ListAggregateNameLookups(ctx context.Context, aggregateIDs []int64, kinds []models.NameKind) ([]models.NameLookupHit, error)
}

// AggregateStore reads and writes aggregates.
type AggregateStore interface {
	CreateAggregate(ctx context.Context) (int64, error)
	GetAggregate(ctx context.Context, id int64) (*models.Aggregate, error)
	ListAggregates(ctx context.Context, ids []int64) ([]models.Aggregate, error)
	UpdateAggregate(ctx context.Context, id int64, state models.AggregateState) error
	UpdateDisplayName(ctx context.Context, id int64, nameRawRecordID *int64, displayName *string, source models.DisplayNameSource) error
	UpdateLookupKey(ctx context.Context, id int64, lookupKey string) error
	UpdatePhotoID(ctx context.Context, id int64, photoID *int64) error
	UpdateHasPhoneNumber(ctx context.Context, id int64, hasPhoneNumber bool) error
	// DeleteAggregate removes the aggregate and its presence row.
	DeleteAggregate(ctx context.Context, id int64) error
}

// ExceptionStore reads and writes aggregation exceptions.
type ExceptionStore interface {
	ListAggregationExceptions(ctx context.Context, rawRecordID int64) ([]models.ExceptionHit, error)
	ListExceptionRawRecordIDs(ctx context.Context) ([]int64, error)
	UpsertAggregationException(ctx context.Context, exception models.AggregationException) error
	DeleteAggregationException(ctx context.Context, rawRecordID1, rawRecordID2 int64) error
}

// RecordStore is the full store surface.
type RecordStore interface {
	RawRecordStore
	NameLookupStore
	AggregateStore
	ExceptionStore
	// InTransaction runs fn inside one write transaction, joining the one carried by ctx if open.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
