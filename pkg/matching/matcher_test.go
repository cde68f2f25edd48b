package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestScorer_Levenshtein(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		a, b     string
		expected float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"jonsmith", "johnsmith", 1.0 - 1.0/9.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.Levenshtein(tt.a, tt.b), 0.0001)
		})
	}
}

func TestScorer_LevenshteinDistance_Runes(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 1, s.LevenshteinDistance("hélène", "helène"))
	assert.Equal(t, 3, s.LevenshteinDistance("kitten", "sitting"))
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		name          string
		candidateKind models.NameKind
		candidate     string
		kind          models.NameKind
		other         string
		algorithm     Algorithm
		expected      int
	}{
		{"equal exact names", models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact, 99},
		{"equal collation keys", models.NameKindCollationKey, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact, 80},
		{"equal variants", models.NameKindVariant, "williamgore", models.NameKindVariant, "williamgore", AlgorithmExact, 75},
		{"collation key against variant", models.NameKindCollationKey, "williamgore", models.NameKindVariant, "williamgore", AlgorithmExact, 72},
		{"unlisted kind pair", models.NameKindExact, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact, 0},
		{"unequal names with exact algorithm", models.NameKindCollationKey, "jonsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact, 0},
		{"unequal exact kind never approximates", models.NameKindExact, "jonsmith", models.NameKindExact, "johnsmith", AlgorithmApproximate, 0},
		{"close names conservative", models.NameKindCollationKey, "jonsmith", models.NameKindCollationKey, "johnsmith", AlgorithmConservative, 76},
		{"distant names conservative", models.NameKindCollationKey, "jonsmyth", models.NameKindCollationKey, "johnsmith", AlgorithmConservative, 0},
		{"distant names approximate", models.NameKindCollationKey, "jonsmyth", models.NameKindCollationKey, "johnsmith", AlgorithmApproximate, 73},
		{"email based names need near equality", models.NameKindEmailBased, "jonsmith", models.NameKindEmailBased, "johnsmith", AlgorithmApproximate, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher()
			m.MatchName(1, tt.candidateKind, tt.candidate, tt.kind, tt.other, tt.algorithm)

			s, ok := m.Get(1)
			if tt.expected == 0 {
				if ok {
					assert.Equal(t, 0, s.PrimaryScore())
				}
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.expected, s.PrimaryScore())
		})
	}
}

func TestMatchName_KeepsMaximum(t *testing.T) {
	m := NewMatcher()
	m.MatchName(1, models.NameKindCollationKey, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact)
	m.MatchName(1, models.NameKindVariant, "johnsmith", models.NameKindVariant, "johnsmith", AlgorithmExact)

	s, _ := m.Get(1)
	assert.Equal(t, 80, s.PrimaryScore())
	assert.Equal(t, 2, s.MatchCount())
}

func TestPickBestMatch(t *testing.T) {
	t.Run("no scores", func(t *testing.T) {
		m := NewMatcher()
		id, status := m.PickBestMatch(ScoreThresholdPrimary, true)
		assert.Equal(t, NoMatch, status)
		assert.Zero(t, id)
	})

	t.Run("below threshold", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(1, models.NameKindNickname, "bill", models.NameKindNickname, "bill", AlgorithmExact)
		_, status := m.PickBestMatch(ScoreThresholdPrimary, true)
		assert.Equal(t, NoMatch, status)
	})

	t.Run("single candidate", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(7, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
		id, status := m.PickBestMatch(ScoreThresholdPrimary, true)
		assert.Equal(t, Matched, status)
		assert.Equal(t, int64(7), id)
	})

	t.Run("multiple candidates require single", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(7, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
		m.MatchName(8, models.NameKindCollationKey, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact)
		_, status := m.PickBestMatch(ScoreThresholdPrimary, true)
		assert.Equal(t, MultipleMatches, status)
	})

	t.Run("multiple candidates pick highest", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(7, models.NameKindCollationKey, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact)
		m.MatchName(8, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
		id, status := m.PickBestMatch(ScoreThresholdPrimary, false)
		assert.Equal(t, Matched, status)
		assert.Equal(t, int64(8), id)
	})

	t.Run("ties break on match count then lowest id", func(t *testing.T) {
		m := NewMatcher()
		m.UpdateScoreWithPhoneNumberMatch(9)
		m.UpdateScoreWithPhoneNumberMatch(4)
		id, _ := m.PickBestMatch(ScoreThresholdSuggest, false)
		assert.Equal(t, int64(4), id)

		m.UpdateScoreWithEmailMatch(9)
		id, _ = m.PickBestMatch(ScoreThresholdSuggest, false)
		assert.Equal(t, int64(9), id)
	})

	t.Run("keep out is never picked", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(7, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
		m.KeepOut(7)
		_, status := m.PickBestMatch(ScoreThresholdPrimary, true)
		assert.Equal(t, NoMatch, status)
	})

	t.Run("keep in wins without name evidence", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(7, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
		m.KeepIn(3)
		id, status := m.PickBestMatch(MaxScore, false)
		assert.Equal(t, Matched, status)
		assert.Equal(t, int64(3), id)
	})

	t.Run("keep out overrides keep in", func(t *testing.T) {
		m := NewMatcher()
		m.KeepIn(3)
		m.KeepOut(3)
		_, status := m.PickBestMatch(MaxScore, false)
		assert.Equal(t, NoMatch, status)
	})
}

func TestSecondaryMatching(t *testing.T) {
	t.Run("no names to compare uses the signal score", func(t *testing.T) {
		m := NewMatcher()
		m.UpdateScoreWithPhoneNumberMatch(5)

		ids := m.PrepareSecondaryMatchCandidates(ScoreThresholdPrimary)
		require.Equal(t, []int64{5}, ids)

		id, status := m.PickBestSecondaryMatch(ScoreThresholdSecondary, true)
		assert.Equal(t, Matched, status)
		assert.Equal(t, int64(5), id)
	})

	t.Run("conflicting names block the signal", func(t *testing.T) {
		m := NewMatcher()
		m.UpdateScoreWithPhoneNumberMatch(5)
		m.PrepareSecondaryMatchCandidates(ScoreThresholdPrimary)

		m.MatchName(5, models.NameKindCollationKey, "janedoe", models.NameKindCollationKey, "johnsmith", AlgorithmConservative)

		_, status := m.PickBestSecondaryMatch(ScoreThresholdSecondary, true)
		assert.Equal(t, NoMatch, status)
	})

	t.Run("agreeing names confirm the signal", func(t *testing.T) {
		m := NewMatcher()
		m.UpdateScoreWithEmailMatch(5)
		m.PrepareSecondaryMatchCandidates(ScoreThresholdPrimary)

		m.MatchName(5, models.NameKindCollationKey, "jonsmith", models.NameKindCollationKey, "johnsmith", AlgorithmConservative)

		id, status := m.PickBestSecondaryMatch(ScoreThresholdSecondary, true)
		assert.Equal(t, Matched, status)
		assert.Equal(t, int64(5), id)
	})

	t.Run("prepare resets name scores and skips kept out", func(t *testing.T) {
		m := NewMatcher()
		m.MatchName(5, models.NameKindNickname, "bill", models.NameKindNickname, "bill", AlgorithmExact)
		m.UpdateScoreWithPhoneNumberMatch(5)
		m.UpdateScoreWithPhoneNumberMatch(6)
		m.KeepOut(6)

		ids := m.PrepareSecondaryMatchCandidates(ScoreThresholdPrimary)
		assert.Equal(t, []int64{5}, ids)

		s, _ := m.Get(5)
		assert.Equal(t, 0, s.PrimaryScore())
	})

	t.Run("two signal matches are ambiguous", func(t *testing.T) {
		m := NewMatcher()
		m.UpdateScoreWithPhoneNumberMatch(5)
		m.UpdateScoreWithPhoneNumberMatch(6)
		m.PrepareSecondaryMatchCandidates(ScoreThresholdPrimary)

		_, status := m.PickBestSecondaryMatch(ScoreThresholdSecondary, true)
		assert.Equal(t, MultipleMatches, status)
	})
}

func TestPickBestMatches(t *testing.T) {
	m := NewMatcher()
	m.MatchName(1, models.NameKindCollationKey, "johnsmith", models.NameKindCollationKey, "johnsmith", AlgorithmExact)
	m.MatchName(2, models.NameKindExact, "johnsmith", models.NameKindExact, "johnsmith", AlgorithmExact)
	m.UpdateScoreWithPhoneNumberMatch(3)
	m.MatchName(4, models.NameKindEmailBased, "js", models.NameKindCollationKey, "js", AlgorithmExact)
	m.UpdateScoreWithPhoneNumberMatch(5)
	m.KeepOut(5)

	got := m.PickBestMatches(ScoreThresholdSuggest)
	ids := make([]int64, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.AggregateID)
	}
	assert.Equal(t, []int64{2, 1, 3, 4}, ids)
	assert.Equal(t, 99, got[0].Score())
}

func TestClear(t *testing.T) {
	m := NewMatcher()
	m.KeepIn(1)
	m.Clear()
	_, status := m.PickBestMatch(MaxScore, false)
	assert.Equal(t, NoMatch, status)
}
