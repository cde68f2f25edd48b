// Package recordstore composes the table repositories into the store used by the engine.
package recordstore

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/aggregate"
	"github.com/Ramsey-B/fern/internal/repositories/aggregationexception"
	"github.com/Ramsey-B/fern/internal/repositories/namelookup"
	"github.com/Ramsey-B/fern/internal/repositories/rawrecord"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/store"
)

type (
	RawRecords  = rawrecord.Repository
	NameLookups = namelookup.Repository
	Aggregates  = aggregate.Repository
	Exceptions  = aggregationexception.Repository
)

// Store is the SQL-backed store.RecordStore.
type Store struct {
	*RawRecords
	*NameLookups
	*Aggregates
	*Exceptions

	db database.DB
}

var _ store.RecordStore = (*Store)(nil)

func New(db database.DB, logger ectologger.Logger) *Store {
	lookups := namelookup.NewRepository(db, logger)
	return &Store{
		RawRecords:  rawrecord.NewRepository(db, lookups, logger),
		NameLookups: lookups,
		Aggregates:  aggregate.NewRepository(db, logger),
		Exceptions:  aggregationexception.NewRepository(db, logger),
		db:          db,
	}
}

// InTransaction runs fn inside one transaction, joining the one carried by ctx if open.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, s.db, fn)
}

// DB exposes the underlying database handle.
func (s *Store) DB() database.DB {
	return s.db
}
