// Package matching scores how well a raw record fits each candidate aggregate.
package matching

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	// MaxScore is the score of an aggregate the record is forced into.
	MaxScore = 100

	// ScoreThresholdPrimary is the name score needed for automatic aggregation.
	ScoreThresholdPrimary = 70
	// ScoreThresholdSecondary is the score needed for automatic aggregation on phone, email
	// or nickname once the names of both sides have been compared conservatively.
	ScoreThresholdSecondary = 50
	// ScoreThresholdSuggest is the score needed to show an aggregate as a suggestion.
	ScoreThresholdSuggest = 50

	PhoneMatchScore    = 71
	EmailMatchScore    = 71
	NicknameMatchScore = 71

	PrimaryHitLimit          = 15
	SecondaryHitLimit        = 20
	SuggestionPrefixHitLimit = 100

	// similarity floors for approximate comparison
	ApproximateMatchThreshold  = 0.60
	ConservativeMatchThreshold = 0.82
	EmailMatchThreshold        = 0.95
)

// Algorithm selects how unequal names are compared.
type Algorithm int

const (
	// AlgorithmExact scores only equal names.
	AlgorithmExact Algorithm = iota
	// AlgorithmConservative scores close names above ConservativeMatchThreshold.
	AlgorithmConservative
	// AlgorithmApproximate scores close names above ApproximateMatchThreshold.
	AlgorithmApproximate
)

// MatchStatus is the outcome of picking a best match.
type MatchStatus int

const (
	NoMatch MatchStatus = iota
	Matched
	MultipleMatches
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case MultipleMatches:
		return "multiple_matches"
	default:
		return "no_match"
	}
}

type scoreRange struct {
	min int
	max int
}

var scoreTable = map[[2]models.NameKind]scoreRange{}

func setScoreRange(a, b models.NameKind, min, max int) {
	scoreTable[[2]models.NameKind{a, b}] = scoreRange{min: min, max: max}
	scoreTable[[2]models.NameKind{b, a}] = scoreRange{min: min, max: max}
}

func init() {
	setScoreRange(models.NameKindExact, models.NameKindExact, 99, 99)
	setScoreRange(models.NameKindVariant, models.NameKindVariant, 50, 75)
	setScoreRange(models.NameKindCollationKey, models.NameKindCollationKey, 50, 80)
	setScoreRange(models.NameKindCollationKey, models.NameKindVariant, 50, 72)
	setScoreRange(models.NameKindCollationKey, models.NameKindNickname, 50, 60)
	setScoreRange(models.NameKindCollationKey, models.NameKindEmailBased, 30, 60)
	setScoreRange(models.NameKindEmailBased, models.NameKindEmailBased, 50, 60)
	setScoreRange(models.NameKindEmailBased, models.NameKindNickname, 50, 60)
	setScoreRange(models.NameKindNickname, models.NameKindNickname, 50, 60)
}

// MatchScore accumulates the signals seen for one candidate aggregate.
type MatchScore struct {
	AggregateID  int64
	primary      int
	secondary    int
	matchCount   int
	nameCompared bool
	keepIn       bool
	keepOut      bool
}

// Score is the combined score: zero when kept out, MaxScore when kept in, otherwise the
// better of the name score and the secondary-signal score.
func (s *MatchScore) Score() int {
	if s.keepOut {
		return 0
	}
	if s.keepIn {
		return MaxScore
	}
	return max(s.primary, s.secondary)
}

func (s *MatchScore) PrimaryScore() int   { return s.primary }
func (s *MatchScore) SecondaryScore() int { return s.secondary }
func (s *MatchScore) MatchCount() int     { return s.matchCount }
func (s *MatchScore) IsKeepIn() bool      { return s.keepIn }
func (s *MatchScore) IsKeepOut() bool     { return s.keepOut }

func (s *MatchScore) updatePrimary(score int) {
	if score <= 0 {
		return
	}
	if score > s.primary {
		s.primary = score
	}
	s.matchCount++
}

func (s *MatchScore) updateSecondary(score int) {
	if score > s.secondary {
		s.secondary = score
	}
	s.matchCount++
}

// Matcher is the per-record score accumulator. It is not safe for concurrent use.
type Matcher struct {
	scorer *Scorer
	scores map[int64]*MatchScore
}

func NewMatcher() *Matcher {
	return &Matcher{
		scorer: NewScorer(),
		scores: make(map[int64]*MatchScore),
	}
}

// Clear drops every accumulated score and constraint.
func (m *Matcher) Clear() {
	m.scores = make(map[int64]*MatchScore)
}

func (m *Matcher) score(aggregateID int64) *MatchScore {
	s, ok := m.scores[aggregateID]
	if !ok {
		s = &MatchScore{AggregateID: aggregateID}
		m.scores[aggregateID] = s
	}
	return s
}

// Get returns the accumulated score of an aggregate.
func (m *Matcher) Get(aggregateID int64) (*MatchScore, bool) {
	s, ok := m.scores[aggregateID]
	return s, ok
}

// KeepIn forces the record into the aggregate.
func (m *Matcher) KeepIn(aggregateID int64) {
	m.score(aggregateID).keepIn = true
}

// KeepOut forbids the record from joining the aggregate.
func (m *Matcher) KeepOut(aggregateID int64) {
	m.score(aggregateID).keepOut = true
}

// MatchName compares a candidate name of the record with a name of a member of the aggregate.
func (m *Matcher) MatchName(aggregateID int64, candidateKind models.NameKind, candidateName string, kind models.NameKind, name string, algorithm Algorithm) {
	r, ok := scoreTable[[2]models.NameKind{candidateKind, kind}]
	if !ok {
		return
	}

	s := m.score(aggregateID)
	s.nameCompared = true

	if candidateName == name {
		s.updatePrimary(r.max)
		return
	}
	if algorithm == AlgorithmExact || r.min == r.max {
		return
	}

	threshold := ApproximateMatchThreshold
	if algorithm == AlgorithmConservative {
		threshold = ConservativeMatchThreshold
	}
	if candidateKind == models.NameKindEmailBased || kind == models.NameKindEmailBased {
		threshold = EmailMatchThreshold
	}

	similarity := m.scorer.Levenshtein(candidateName, name)
	if similarity < threshold {
		return
	}
	s.updatePrimary(r.min + int(float64(r.max-r.min)*similarity))
}

func (m *Matcher) UpdateScoreWithPhoneNumberMatch(aggregateID int64) {
	m.score(aggregateID).updateSecondary(PhoneMatchScore)
}

func (m *Matcher) UpdateScoreWithEmailMatch(aggregateID int64) {
	m.score(aggregateID).updateSecondary(EmailMatchScore)
}

func (m *Matcher) UpdateScoreWithNicknameMatch(aggregateID int64) {
	m.score(aggregateID).updateSecondary(NicknameMatchScore)
}

// sorted returns the scores in ascending aggregate id order.
func (m *Matcher) sorted() []*MatchScore {
	out := make([]*MatchScore, 0, len(m.scores))
	for _, s := range m.scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AggregateID < out[j].AggregateID })
	return out
}

// better orders by value, then match count, then the lower aggregate id.
func better(a *MatchScore, av int, b *MatchScore, bv int) bool {
	if av != bv {
		return av > bv
	}
	if a.matchCount != b.matchCount {
		return a.matchCount > b.matchCount
	}
	return a.AggregateID < b.AggregateID
}

func (m *Matcher) pick(threshold int, requireSingle bool, value func(*MatchScore) int) (int64, MatchStatus) {
	var keptIn *MatchScore
	for _, s := range m.sorted() {
		if s.keepIn && !s.keepOut {
			if keptIn == nil || better(s, max(s.primary, s.secondary), keptIn, max(keptIn.primary, keptIn.secondary)) {
				keptIn = s
			}
		}
	}
	if keptIn != nil {
		return keptIn.AggregateID, Matched
	}

	var best *MatchScore
	bestValue, qualifying := 0, 0
	for _, s := range m.sorted() {
		if s.keepOut {
			continue
		}
		v := value(s)
		if v < threshold || v <= 0 {
			continue
		}
		qualifying++
		if best == nil || better(s, v, best, bestValue) {
			best, bestValue = s, v
		}
	}

	switch {
	case best == nil:
		return 0, NoMatch
	case requireSingle && qualifying > 1:
		return 0, MultipleMatches
	}
	return best.AggregateID, Matched
}

// PickBestMatch returns the best aggregate scoring at least threshold. With requireSingle
// set, more than one qualifying aggregate yields MultipleMatches.
func (m *Matcher) PickBestMatch(threshold int, requireSingle bool) (int64, MatchStatus) {
	return m.pick(threshold, requireSingle, (*MatchScore).Score)
}

// PrepareSecondaryMatchCandidates returns the aggregates whose secondary-signal score reaches
// threshold and resets every name score so the candidates can be re-scored on names alone.
func (m *Matcher) PrepareSecondaryMatchCandidates(threshold int) []int64 {
	var ids []int64
	for _, s := range m.sorted() {
		s.primary = 0
		s.nameCompared = false
		if s.keepOut {
			continue
		}
		if s.secondary >= threshold {
			ids = append(ids, s.AggregateID)
		}
	}
	return ids
}

// PickBestSecondaryMatch picks among the secondary candidates. A candidate whose names were
// compared is judged on the name score, so present-but-different names block it; one without
// comparable names is judged on its secondary-signal score.
func (m *Matcher) PickBestSecondaryMatch(threshold int, requireSingle bool) (int64, MatchStatus) {
	return m.pick(threshold, requireSingle, func(s *MatchScore) int {
		if s.secondary == 0 {
			return 0
		}
		if s.nameCompared {
			return s.primary
		}
		return s.secondary
	})
}

// PickBestMatches returns every aggregate scoring at least threshold, best first.
func (m *Matcher) PickBestMatches(threshold int) []MatchScore {
	var out []MatchScore
	for _, s := range m.scores {
		if s.keepOut || s.Score() < threshold || s.Score() <= 0 {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return better(&out[i], out[i].Score(), &out[j], out[j].Score())
	})
	return out
}
