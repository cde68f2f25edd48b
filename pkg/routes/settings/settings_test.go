package settings_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/routes/settings"
)

func TestEnabledSwitch(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	engine := aggregation.NewEngine(testutil.Logger(), s, merging.NewStaticAccountPolicy(nil, nil), aggregation.DefaultConfig())
	e := testutil.NewEcho()
	settings.NewHandler(engine, nil, testutil.Logger()).Register(e.Group("/api/v1/aggregation"))

	rec := testutil.Do(t, e, http.MethodGet, "/api/v1/aggregation/enabled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AggregationEnabledResponse{Enabled: true}, testutil.Decode[models.AggregationEnabledResponse](t, rec))

	rec = testutil.Do(t, e, http.MethodPut, "/api/v1/aggregation/enabled", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, engine.IsEnabled())

	var ids []int64
	for _, account := range []models.Account{testutil.Google, testutil.Exchange} {
		_, err := engine.InWriteTransaction(ctx, func(ctx context.Context) error {
			id, err := s.InsertRawRecord(ctx, testutil.Record(account, "John", "Smith"), nil)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			if _, err := engine.OnRawRecordInserted(ctx, id); err != nil {
				return err
			}
			engine.MarkForAggregation(ctx, id, models.AggregationModeDefault, false)
			return nil
		})
		require.NoError(t, err)
	}

	rec = testutil.Do(t, e, http.MethodGet, "/api/v1/aggregation/enabled", nil)
	assert.Equal(t, models.AggregationEnabledResponse{Enabled: false, Pending: 2}, testutil.Decode[models.AggregationEnabledResponse](t, rec))

	rec = testutil.Do(t, e, http.MethodPut, "/api/v1/aggregation/enabled", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AggregationEnabledResponse{Enabled: true}, testutil.Decode[models.AggregationEnabledResponse](t, rec))

	a1, err := s.GetRawRecord(ctx, ids[0])
	require.NoError(t, err)
	a2, err := s.GetRawRecord(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, a1.GetAggregateID(), a2.GetAggregateID())

	assert.Equal(t, http.StatusBadRequest, testutil.Do(t, e, http.MethodPut, "/api/v1/aggregation/enabled", map[string]any{}).Code)
}
