package aggregation

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/namelookup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// matchData finds the aggregate whose data matches the record. Names are tried first; when no
// name matches, phone, email and nickname matches pick the candidates, whose names are then
// compared conservatively. An ambiguous result is no match.
func (e *Engine) matchData(ctx context.Context, record *models.RawRecord, matcher *matching.Matcher) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.matchData")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{"raw_record_id": record.ID})

	candidates, err := e.index.Load(ctx, record.ID, false)
	if err != nil {
		return 0, err
	}

	if len(candidates) > 0 {
		hits, err := e.store.FindNameLookupMatches(ctx, namelookup.Names(candidates), models.AllNameKinds, record.ID, e.config.PrimaryHitLimit)
		if err != nil {
			return 0, err
		}
		scoreNames(matcher, candidates, hits, matching.AlgorithmExact)

		id, status := matcher.PickBestMatch(matching.ScoreThresholdPrimary, true)
		switch status {
		case matching.Matched:
			log.WithFields(map[string]any{"aggregate_id": id}).Debug("Matched aggregate by name")
			return id, nil
		case matching.MultipleMatches:
			log.Debug("Ambiguous name match")
			return 0, nil
		}
	}

	if err := e.scoreSecondarySignals(ctx, record.ID, candidates, matcher); err != nil {
		return 0, err
	}

	ids := matcher.PrepareSecondaryMatchCandidates(matching.ScoreThresholdPrimary)
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > e.config.SecondaryHitLimit {
		log.WithFields(map[string]any{"candidates": len(ids)}).Debug("Too many secondary candidates")
		return 0, nil
	}

	structured, err := e.index.Load(ctx, record.ID, true)
	if err != nil {
		return 0, err
	}
	if len(structured) > 0 {
		lookups, err := e.store.ListAggregateNameLookups(ctx, ids, models.StructuredNameKinds)
		if err != nil {
			return 0, err
		}
		others := lookups[:0]
		for _, l := range lookups {
			if l.RawRecordID != record.ID {
				others = append(others, l)
			}
		}
		scoreNames(matcher, structured, others, matching.AlgorithmConservative)
	}

	id, status := matcher.PickBestSecondaryMatch(matching.ScoreThresholdSecondary, true)
	if status != matching.Matched {
		return 0, nil
	}
	log.WithFields(map[string]any{"aggregate_id": id}).Debug("Matched aggregate by secondary data")
	return id, nil
}

// scoreSecondarySignals adds phone, email and nickname matches. A signal matching more
// records than the secondary hit limit is too common to mean anything and is ignored.
func (e *Engine) scoreSecondarySignals(ctx context.Context, rawRecordID int64, candidates []namelookup.Candidate, matcher *matching.Matcher) error {
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

	var nicknames []string
	for _, c := range candidates {
		if c.Kind == models.NameKindNickname {
			nicknames = append(nicknames, c.Name)
		}
	}
	if len(nicknames) == 0 {
		return nil
	}
	hits, err := e.store.FindNameLookupMatches(ctx, nicknames, []models.NameKind{models.NameKindNickname}, rawRecordID, limit+1)
	if err != nil {
		return err
	}
	if len(hits) > limit {
		return nil
	}
	for _, hit := range hits {
		matcher.UpdateScoreWithNicknameMatch(hit.AggregateID)
	}
	return nil
}

func scoreNames(matcher *matching.Matcher, candidates []namelookup.Candidate, hits []models.NameLookupHit, algorithm matching.Algorithm) {
	for _, hit := range hits {
		for _, c := range candidates {
			matcher.MatchName(hit.AggregateID, c.Kind, c.Name, hit.Kind, hit.NormalizedName, algorithm)
		}
	}
}
