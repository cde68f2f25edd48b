package aggregation

import (
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
)

func suggestionIDs(suggestions []Suggestion) []int64 {
	ids := make([]int64, 0, len(suggestions))
	for _, s := range suggestions {
		ids = append(ids, s.Aggregate.ID)
	}
	return ids
}

func TestQueryAggregationSuggestions(t *testing.T) {
	f := newFixture(t)

	john := f.add(testutil.Record(testutil.Google, "John", "Smith"))
	jon := f.add(testutil.Record(testutil.Google, "Jon", "Smith"))
	zed := f.add(testutil.Record(testutil.Google, "Zed", "Xavier"))
	require.NotEqual(t, f.aggregateOf(john), f.aggregateOf(jon))

	t.Run("similar names are suggested", func(t *testing.T) {
		suggestions, err := f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 10, "")
		require.NoError(t, err)

		ids := suggestionIDs(suggestions)
		assert.Contains(t, ids, f.aggregateOf(jon))
		assert.NotContains(t, ids, f.aggregateOf(john))
		assert.NotContains(t, ids, f.aggregateOf(zed))
		for _, s := range suggestions {
			assert.GreaterOrEqual(t, s.Score, 50)
		}
	})

	t.Run("filter", func(t *testing.T) {
		suggestions, err := f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 10, "JON")
		require.NoError(t, err)
		assert.Equal(t, []int64{f.aggregateOf(jon)}, suggestionIDs(suggestions))

		suggestions, err = f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 10, "nobody")
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})

	t.Run("unknown aggregate", func(t *testing.T) {
		_, err := f.engine.QueryAggregationSuggestions(f.ctx, 9999, 10, "")
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestQueryAggregationSuggestions_RanksAndCaps(t *testing.T) {
	f := newFixture(t)

	john := f.add(testutil.Record(testutil.Google, "John", "Smith"), testutil.Phone("555 123 4567"))
	// same account, so none of these join the first record
	sameName := f.add(testutil.Record(testutil.Google, "Jon", "Smith"), testutil.Phone("555 123 4567"))
	similar := f.add(testutil.Record(testutil.Google, "Johnathan", "Smith"))

	suggestions, err := f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 0, "")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, f.aggregateOf(sameName), suggestions[0].Aggregate.ID)
	assert.Equal(t, f.aggregateOf(similar), suggestions[1].Aggregate.ID)

	suggestions, err = f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 1, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{f.aggregateOf(sameName)}, suggestionIDs(suggestions))
}

func TestQueryAggregationSuggestions_FilterMatchesDetails(t *testing.T) {
	f := newFixture(t)

	john := f.add(testutil.Record(testutil.Google, "John", "Smith"))
	jon := f.add(testutil.Record(testutil.Google, "Jon", "Smith"), testutil.Email("jon@smithworks.example.com"))

	suggestions, err := f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 10, "smithworks")
	require.NoError(t, err)
	assert.Equal(t, []int64{f.aggregateOf(jon)}, suggestionIDs(suggestions))
}

func TestQueryAggregationSuggestions_SharedPhoneAboveLimitIsIgnored(t *testing.T) {
	others := []struct{ given, family string }{
		{"Mary", "Brown"},
		{"Zed", "Xavier"},
		{"Olga", "Petrova"},
		{"Kurt", "Vogel"},
	}

	tests := []struct {
		name    string
		holders int
		want    int
	}{
		{name: "within the limit", holders: 3, want: 3},
		{name: "above the limit", holders: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SecondaryHitLimit = 3
			f := newFixtureWithConfig(t, cfg)

			john := f.add(testutil.Record(testutil.Google, "John", "Smith"), testutil.Phone("800-555-0000"))
			// same account, so none of these join the first record
			for _, o := range others[:tt.holders] {
				f.add(testutil.Record(testutil.Google, o.given, o.family), testutil.Phone("800-555-0000"))
			}

			suggestions, err := f.engine.QueryAggregationSuggestions(f.ctx, f.aggregateOf(john), 0, "")
			require.NoError(t, err)
			assert.Len(t, suggestions, tt.want)
		})
	}
}
