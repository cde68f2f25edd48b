package exception_test

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
	"github.com/Ramsey-B/fern/pkg/routes/exception"
)

func TestSet(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	engine := aggregation.NewEngine(testutil.Logger(), s, merging.NewStaticAccountPolicy(nil, nil), aggregation.DefaultConfig())
	e := testutil.NewEcho()
	exception.NewHandler(engine, nil, testutil.Logger()).Register(e.Group("/api/v1/aggregation-exceptions"))

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
	aggregateOf := func(id int64) int64 {
		r, err := s.GetRawRecord(ctx, id)
		require.NoError(t, err)
		return r.GetAggregateID()
	}
	require.Equal(t, aggregateOf(ids[0]), aggregateOf(ids[1]))

	rec := testutil.Do(t, e, http.MethodPut, "/api/v1/aggregation-exceptions", map[string]any{
		"raw_record_id_1": ids[0],
		"raw_record_id_2": ids[1],
		"kind":            "keep_separate",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := testutil.Decode[models.AggregationResult](t, rec)
	assert.NotEmpty(t, result.Created)
	assert.NotEqual(t, aggregateOf(ids[0]), aggregateOf(ids[1]))

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"same record", map[string]any{"raw_record_id_1": ids[0], "raw_record_id_2": ids[0], "kind": "keep_together"}, http.StatusBadRequest},
		{"unknown kind", map[string]any{"raw_record_id_1": ids[0], "raw_record_id_2": ids[1], "kind": "sometimes"}, http.StatusBadRequest},
		{"missing id", map[string]any{"raw_record_id_1": ids[0], "kind": "keep_together"}, http.StatusBadRequest},
		{"unknown record", map[string]any{"raw_record_id_1": ids[0], "raw_record_id_2": 999, "kind": "keep_together"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Do(t, e, http.MethodPut, "/api/v1/aggregation-exceptions", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}
