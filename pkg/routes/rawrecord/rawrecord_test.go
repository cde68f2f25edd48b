package rawrecord_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/recordstore"
	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/routes/rawrecord"
)

type recordingPublisher struct {
	events []*kafka.AggregateEvent
}

func (p *recordingPublisher) PublishAggregateEvents(_ context.Context, events []*kafka.AggregateEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

func newServer(t *testing.T) (*echo.Echo, *recordstore.Store, *recordingPublisher) {
	t.Helper()
	s := testutil.NewStore(t)
	engine := aggregation.NewEngine(testutil.Logger(), s, merging.NewStaticAccountPolicy(nil, nil), aggregation.DefaultConfig())
	publisher := &recordingPublisher{}
	emitter := events.NewEmitter(publisher, s, testutil.Logger())

	e := testutil.NewEcho()
	rawrecord.NewHandler(engine, s, emitter, testutil.Logger()).Register(e.Group("/api/v1/raw-records"))
	return e, s, publisher
}

func johnSmith(accountType string) map[string]any {
	return map[string]any{
		"account_type": accountType,
		"account_name": "me@example.com",
		"given_name":   "John",
		"family_name":  "Smith",
		"details": []map[string]any{
			{"kind": "phone", "value": "+1 555 0100", "is_primary": true},
		},
	}
}

func TestCreate_JoinsMatchingRecords(t *testing.T) {
	e, _, publisher := newServer(t)

	rec := testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("google"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := testutil.Decode[models.RawRecordResponse](t, rec)
	require.NotNil(t, first.RawRecord.AggregateID)
	assert.Len(t, first.RawRecord.Details, 1)
	assert.Equal(t, []int64{*first.RawRecord.AggregateID}, first.Aggregation.Updated)
	assert.Equal(t, []string{kafka.EventAggregateUpdated}, publisher.types())

	rec = testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("exchange"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := testutil.Decode[models.RawRecordResponse](t, rec)
	require.NotNil(t, second.RawRecord.AggregateID)
	assert.Equal(t, *first.RawRecord.AggregateID, *second.RawRecord.AggregateID)
	assert.Len(t, second.Aggregation.Deleted, 1)
}

func TestCreate_Validation(t *testing.T) {
	e, _, _ := newServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"unknown mode", map[string]any{"given_name": "John", "aggregation_mode": "eager"}},
		{"unknown detail kind", map[string]any{"details": []map[string]any{{"kind": "fax", "value": "1"}}}},
		{"empty detail value", map[string]any{"details": []map[string]any{{"kind": "email", "value": ""}}}},
		{"malformed", "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGet(t *testing.T) {
	e, _, _ := newServer(t)

	created := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("google")))

	rec := testutil.Do(t, e, http.MethodGet, "/api/v1/raw-records/"+itoa(created.RawRecord.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := testutil.Decode[models.RawRecordWithDetails](t, rec)
	assert.Equal(t, "John", got.GivenName)
	assert.Equal(t, "google", got.Account.Type)

	assert.Equal(t, http.StatusNotFound, testutil.Do(t, e, http.MethodGet, "/api/v1/raw-records/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, e, http.MethodGet, "/api/v1/raw-records/abc", nil).Code)
}

func TestUpdate_RenameSplitsAggregate(t *testing.T) {
	e, _, _ := newServer(t)

	first := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("google")))
	second := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("exchange")))
	require.Equal(t, *first.RawRecord.AggregateID, *second.RawRecord.AggregateID)

	body := map[string]any{
		"account_type": "exchange",
		"account_name": "me@example.com",
		"given_name":   "Zed",
		"family_name":  "Quill",
	}
	rec := testutil.Do(t, e, http.MethodPut, "/api/v1/raw-records/"+itoa(second.RawRecord.ID), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := testutil.Decode[models.RawRecordResponse](t, rec)

	assert.Equal(t, "Zed", updated.RawRecord.GivenName)
	assert.Empty(t, updated.RawRecord.Details)
	require.NotNil(t, updated.RawRecord.AggregateID)
	assert.NotEqual(t, *first.RawRecord.AggregateID, *updated.RawRecord.AggregateID)

	assert.Equal(t, http.StatusNotFound, testutil.Do(t, e, http.MethodPut, "/api/v1/raw-records/999", body).Code)
}

func TestDelete(t *testing.T) {
	e, s, publisher := newServer(t)

	created := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("google")))
	aggregateID := *created.RawRecord.AggregateID
	publisher.events = nil

	rec := testutil.Do(t, e, http.MethodDelete, "/api/v1/raw-records/"+itoa(created.RawRecord.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := testutil.Decode[models.AggregationResult](t, rec)
	assert.Equal(t, []int64{aggregateID}, result.Deleted)
	assert.Equal(t, []string{kafka.EventAggregateDeleted}, publisher.types())

	_, err := s.GetAggregate(context.Background(), aggregateID)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, e, http.MethodDelete, "/api/v1/raw-records/"+itoa(created.RawRecord.ID), nil).Code)
}

func TestVerifyName(t *testing.T) {
	e, s, _ := newServer(t)

	first := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", johnSmith("google")))
	body := johnSmith("exchange")
	body["given_name"] = "Smith"
	body["family_name"] = "John"
	second := testutil.Decode[models.RawRecordResponse](t, testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records", body))
	require.Equal(t, *first.RawRecord.AggregateID, *second.RawRecord.AggregateID)

	rec := testutil.Do(t, e, http.MethodPost, "/api/v1/raw-records/"+itoa(second.RawRecord.ID)+"/verify-name", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, testutil.Decode[models.RawRecordWithDetails](t, rec).NameVerified)

	aggregate, err := s.GetAggregate(context.Background(), *first.RawRecord.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, "Smith John", aggregate.GetDisplayName())
}
