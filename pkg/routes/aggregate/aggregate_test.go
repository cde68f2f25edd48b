package aggregate_test

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/recordstore"
	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/routes/aggregate"
)

type server struct {
	t      *testing.T
	echo   *echo.Echo
	store  *recordstore.Store
	engine *aggregation.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := testutil.NewStore(t)
	engine := aggregation.NewEngine(testutil.Logger(), s, merging.NewStaticAccountPolicy(nil, nil), aggregation.DefaultConfig())

	e := testutil.NewEcho()
	aggregate.NewHandler(engine, s, nil, testutil.Logger()).Register(e.Group("/api/v1/aggregates"))
	return &server{t: t, echo: e, store: s, engine: engine}
}

func (s *server) add(record *models.RawRecord, details ...models.DetailRow) (int64, int64) {
	s.t.Helper()
	var id int64
	_, err := s.engine.InWriteTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		if id, err = s.store.InsertRawRecord(ctx, record, details); err != nil {
			return err
		}
		if _, err := s.engine.OnRawRecordInserted(ctx, id); err != nil {
			return err
		}
		s.engine.MarkForAggregation(ctx, id, record.AggregationMode, false)
		return nil
	})
	require.NoError(s.t, err)

	stored, err := s.store.GetRawRecord(context.Background(), id)
	require.NoError(s.t, err)
	return id, stored.GetAggregateID()
}

func path(id int64, suffix string) string {
	return "/api/v1/aggregates/" + strconv.FormatInt(id, 10) + suffix
}

func TestGet(t *testing.T) {
	s := newServer(t)
	_, aggregateID := s.add(testutil.Record(testutil.Google, "John", "Smith"))

	rec := testutil.Do(t, s.echo, http.MethodGet, path(aggregateID, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := testutil.Decode[models.Aggregate](t, rec)
	assert.Equal(t, aggregateID, got.ID)
	assert.Equal(t, "John Smith", got.GetDisplayName())

	assert.Equal(t, http.StatusNotFound, testutil.Do(t, s.echo, http.MethodGet, path(999, ""), nil).Code)
}

func TestMembers(t *testing.T) {
	s := newServer(t)
	r1, aggregateID := s.add(testutil.Record(testutil.Google, "John", "Smith"), testutil.Email("john@example.com"))
	r2, joined := s.add(testutil.Record(testutil.Exchange, "John", "Smith"))
	require.Equal(t, aggregateID, joined)

	rec := testutil.Do(t, s.echo, http.MethodGet, path(aggregateID, "/members"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := testutil.Decode[[]models.RawRecordWithDetails](t, rec)
	require.Len(t, members, 2)
	assert.Equal(t, r1, members[0].ID)
	assert.Equal(t, r2, members[1].ID)
	require.Len(t, members[0].Details, 1)
	assert.Equal(t, "john@example.com", members[0].Details[0].Value)
	assert.Empty(t, members[1].Details)

	assert.Equal(t, http.StatusNotFound, testutil.Do(t, s.echo, http.MethodGet, path(999, "/members"), nil).Code)
}

func TestSuggestions(t *testing.T) {
	s := newServer(t)
	_, john := s.add(testutil.Record(testutil.Google, "John", "Smith"))
	_, jon := s.add(testutil.Record(testutil.Google, "Jon", "Smith"))
	require.NotEqual(t, john, jon)

	rec := testutil.Do(t, s.echo, http.MethodGet, path(john, "/suggestions?limit=5"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	suggestions := testutil.Decode[[]aggregation.Suggestion](t, rec)
	require.Len(t, suggestions, 1)
	assert.Equal(t, jon, suggestions[0].Aggregate.ID)

	rec = testutil.Do(t, s.echo, http.MethodGet, path(john, "/suggestions?filter=nobody"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, s.echo, http.MethodGet, path(john, "/suggestions?limit=many"), nil).Code)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, s.echo, http.MethodGet, path(999, "/suggestions"), nil).Code)
}

func TestLookup(t *testing.T) {
	s := newServer(t)
	_, aggregateID := s.add(testutil.Record(testutil.Google, "John", "Smith"))
	a, err := s.store.GetAggregate(context.Background(), aggregateID)
	require.NoError(t, err)

	rec := testutil.Do(t, s.echo, http.MethodGet, "/api/v1/aggregates/lookup?key="+url.QueryEscape(a.LookupKey), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, aggregateID, testutil.Decode[models.Aggregate](t, rec).ID)

	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, s.echo, http.MethodGet, "/api/v1/aggregates/lookup", nil).Code)
	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, s.echo, http.MethodGet, "/api/v1/aggregates/lookup?key=not-a-key", nil).Code)
}

func TestRecompute(t *testing.T) {
	s := newServer(t)
	r1, aggregateID := s.add(testutil.Record(testutil.Google, "John", "Smith"))

	record, err := s.store.GetRawRecord(context.Background(), r1)
	require.NoError(t, err)
	record.DisplayName = ""
	record.GivenName = "Johnny"
	require.NoError(t, s.store.UpdateRawRecord(context.Background(), record, []models.DetailRow{testutil.Phone("555 123 4567")}))

	rec := testutil.Do(t, s.echo, http.MethodPost, path(aggregateID, "/recompute"), map[string]any{"part": "has_phone_number"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := testutil.Decode[models.Aggregate](t, rec)
	assert.True(t, got.HasPhoneNumber)
	assert.Equal(t, "John Smith", got.GetDisplayName())

	rec = testutil.Do(t, s.echo, http.MethodPost, path(aggregateID, "/recompute"), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = testutil.Decode[models.Aggregate](t, rec)
	assert.Equal(t, "Johnny Smith", got.GetDisplayName())

	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, s.echo, http.MethodPost, path(aggregateID, "/recompute"), map[string]any{"part": "everything"}).Code)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, s.echo, http.MethodPost, path(999, "/recompute"), map[string]any{}).Code)
}
