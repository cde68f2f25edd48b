// Package testutil provides an in-memory record store and raw record fixtures for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Ramsey-B/fern/internal/repositories/recordstore"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Logger returns a logger that drops every message.
func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// NewDB opens an in-memory SQLite database with the service schema.
func NewDB(t *testing.T) database.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection of an in-memory database is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)

	return database.NewDatabaseInstance(db, Logger())
}

// NewStore returns a record store over a fresh in-memory database.
func NewStore(t *testing.T) *recordstore.Store {
	t.Helper()
	return recordstore.New(NewDB(t), Logger())
}

var (
	Google   = models.Account{Type: "google", Name: "me@gmail.com"}
	Exchange = models.Account{Type: "exchange", Name: "me@corp.example.com"}
	Local    = models.Account{}
)

// Record builds a raw record with a structured name.
func Record(account models.Account, given, family string) *models.RawRecord {
	return &models.RawRecord{
		Account:    account,
		GivenName:  given,
		FamilyName: family,
	}
}

func Phone(value string) models.DetailRow {
	return models.DetailRow{Kind: models.DetailKindPhone, Value: value}
}

func Email(value string) models.DetailRow {
	return models.DetailRow{Kind: models.DetailKindEmail, Value: value}
}

func Nickname(value string) models.DetailRow {
	return models.DetailRow{Kind: models.DetailKindNickname, Value: value}
}

func Organization(value string) models.DetailRow {
	return models.DetailRow{Kind: models.DetailKindOrganization, Value: value}
}

func Photo(value string, superPrimary bool) models.DetailRow {
	return models.DetailRow{Kind: models.DetailKindPhoto, Value: value, IsSuperPrimary: superPrimary}
}

// Insert stores the record and returns its id.
func Insert(t *testing.T, s *recordstore.Store, record *models.RawRecord, details ...models.DetailRow) int64 {
	t.Helper()
	id, err := s.InsertRawRecord(context.Background(), record, details)
	require.NoError(t, err)
	return id
}
