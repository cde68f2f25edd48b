package aggregation

import (
	"context"
	"strings"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/namelookup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const suggestionPrefixLength = 2

var suggestionPrefixKinds = []models.NameKind{
	models.NameKindCollationKey,
	models.NameKindNickname,
	models.NameKindEmailBased,
}

// Suggestion is an aggregate that may be the same entity as the one asked about.
type Suggestion struct {
	Aggregate models.Aggregate `json:"aggregate"`
	Score     int              `json:"score"`
}

// QueryAggregationSuggestions ranks aggregates resembling the given one, best first. Names
// are compared approximately, so misspellings and shared prefixes count. The filter keeps
// suggestions whose display name, detail values or structured names contain it, ignoring
// case. A maxResults of zero or less returns every suggestion.
func (e *Engine) QueryAggregationSuggestions(ctx context.Context, aggregateID int64, maxResults int, filter string) ([]Suggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.QueryAggregationSuggestions")
	defer span.End()

	if _, err := e.store.GetAggregate(ctx, aggregateID); err != nil {
		return nil, err
	}

	members, err := e.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return nil, err
	}

	matcher := matching.NewMatcher()
	matcher.KeepOut(aggregateID)
	for _, member := range members {
		if err := e.scoreSuggestions(ctx, member.ID, matcher); err != nil {
			return nil, err
		}
	}

	scores := matcher.PickBestMatches(matching.ScoreThresholdSuggest)
	if len(scores) == 0 {
		metrics.RecordSuggestionQuery()
		return []Suggestion{}, nil
	}

	ids := make([]int64, 0, len(scores))
	for _, s := range scores {
		ids = append(ids, s.AggregateID)
	}
	aggregates, err := e.store.ListAggregates(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Aggregate, len(aggregates))
	for _, a := range aggregates {
		byID[a.ID] = a
	}

	suggestions := make([]Suggestion, 0, len(scores))
	for _, s := range scores {
		if maxResults > 0 && len(suggestions) >= maxResults {
			break
		}
		aggregate, ok := byID[s.AggregateID]
		if !ok {
			continue
		}
		if filter != "" {
			keep, err := e.matchesFilter(ctx, aggregate, filter)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		suggestions = append(suggestions, Suggestion{Aggregate: aggregate, Score: s.Score()})
	}

	metrics.RecordSuggestionQuery()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"aggregate_id": aggregateID,
		"candidates":   len(scores),
		"suggestions":  len(suggestions),
	}).Debug("Queried aggregation suggestions")

	return suggestions, nil
}

// scoreSuggestions adds the name, prefix, phone and email matches of one member.
func (e *Engine) scoreSuggestions(ctx context.Context, rawRecordID int64, matcher *matching.Matcher) error {
	candidates, err := e.index.Load(ctx, rawRecordID, false)
	if err != nil {
		return err
	}

	if len(candidates) > 0 {
		hits, err := e.store.FindNameLookupMatches(ctx, namelookup.Names(candidates), models.AllNameKinds, rawRecordID, e.config.SuggestionPrefixHitLimit)
		if err != nil {
			return err
		}
		scoreNames(matcher, candidates, hits, matching.AlgorithmApproximate)
	}

	prefixHits := make(map[string][]models.NameLookupHit)
	for _, c := range candidates {
		if !isPrefixKind(c.Kind) {
			continue
		}
		prefix, ok := namePrefix(c.Name)
		if !ok {
			continue
		}
		hits, loaded := prefixHits[prefix]
		if !loaded {
			hits, err = e.store.FindNameLookupsByPrefix(ctx, prefix, suggestionPrefixKinds, rawRecordID, e.config.SuggestionPrefixHitLimit)
			if err != nil {
				return err
			}
			prefixHits[prefix] = hits
		}
		scoreNames(matcher, []namelookup.Candidate{c}, hits, matching.AlgorithmApproximate)
	}

	limit := e.config.SecondaryHitLimit
	for _, kind := range []models.DetailKind{models.DetailKindPhone, models.DetailKindEmail} {
		hits, err := e.store.FindDetailMatches(ctx, rawRecordID, kind, limit+1)
		if err != nil {
			return err
		}
		if len(hits) > limit {
			continue
		}
		for _, hit := range hits {
			if kind == models.DetailKindPhone {
				matcher.UpdateScoreWithPhoneNumberMatch(hit.AggregateID)
			} else {
				matcher.UpdateScoreWithEmailMatch(hit.AggregateID)
			}
		}
	}
	return nil
}

// matchesFilter looks for the filter in the display name, then in the members' names and details.
func (e *Engine) matchesFilter(ctx context.Context, aggregate models.Aggregate, filter string) (bool, error) {
	needle := strings.ToLower(filter)
	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), needle)
	}

	if contains(aggregate.GetDisplayName()) {
		return true, nil
	}

	members, err := e.store.ListMembers(ctx, aggregate.ID)
	if err != nil {
		return false, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if contains(m.StructuredName()) || contains(m.DisplayName) {
			return true, nil
		}
		ids = append(ids, m.ID)
	}

	details, err := e.store.ListDetails(ctx, ids)
	if err != nil {
		return false, err
	}
	for _, d := range details {
		if contains(d.Value) {
			return true, nil
		}
	}
	return false, nil
}

func isPrefixKind(kind models.NameKind) bool {
	for _, k := range suggestionPrefixKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func namePrefix(name string) (string, bool) {
	runes := []rune(name)
	if len(runes) < suggestionPrefixLength {
		return "", false
	}
	return string(runes[:suggestionPrefixLength]), true
}
