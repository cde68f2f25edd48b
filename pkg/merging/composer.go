// Package merging composes the derived state of an aggregate from its member raw records.
package merging

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/store"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Store is the part of the record store the composer reads and writes.
type Store interface {
	store.RawRecordStore
	store.AggregateStore
}

// Composer recomputes aggregate state. Full and partial recomputation write to the store;
// Compose itself is pure.
type Composer struct {
	logger      ectologger.Logger
	store       Store
	policy      AccountPolicy
	fieldMerger *FieldMerger
}

func NewComposer(logger ectologger.Logger, store Store, policy AccountPolicy) *Composer {
	return &Composer{
		logger:      logger,
		store:       store,
		policy:      policy,
		fieldMerger: NewFieldMerger(),
	}
}

// Compose derives the aggregate state from members in ascending id order and their detail rows.
func (c *Composer) Compose(members []models.RawRecord, details []models.DetailRow) models.AggregateState {
	state := models.AggregateState{}

	if best, ok := chooseDisplayName(members, c.policy); ok {
		id, name := best.RawRecordID, best.Name
		state.NameRawRecordID = &id
		state.DisplayName = &name
		state.DisplayNameSource = best.Source
	}

	state.LookupKey = BuildLookupKey(members)
	state.PhotoID = c.choosePhoto(members, details)
	state.HasPhoneNumber = hasPhoneNumber(details)
	state.IsRestricted = len(members) == 1 && members[0].IsRestricted

	options := c.fieldMerger.MergeOptions(members)
	state.SendToVoicemail = options.SendToVoicemail
	state.CustomRingtone = options.CustomRingtone
	state.LastTimeContacted = options.LastTimeContacted
	state.TimesContacted = options.TimesContacted
	state.Starred = options.Starred

	return state
}

// ComputeState loads the members of an aggregate and composes its state.
func (c *Composer) ComputeState(ctx context.Context, aggregateID int64) (models.AggregateState, error) {
	members, err := c.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return models.AggregateState{}, err
	}

	details, err := c.store.ListDetails(ctx, memberIDs(members), models.DetailKindPhone, models.DetailKindPhoto)
	if err != nil {
		return models.AggregateState{}, err
	}

	return c.Compose(members, details), nil
}

// UpdateAggregateData recomputes and stores every derived attribute of the aggregate.
func (c *Composer) UpdateAggregateData(ctx context.Context, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Composer.UpdateAggregateData")
	defer span.End()

	state, err := c.ComputeState(ctx, aggregateID)
	if err != nil {
		return err
	}

	if err := c.store.UpdateAggregate(ctx, aggregateID, state); err != nil {
		return err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"aggregate_id":        aggregateID,
		"display_name_source": state.DisplayNameSource,
		"has_phone_number":    state.HasPhoneNumber,
	}).Debug("Recomputed aggregate")

	return nil
}

// UpdateDisplayName recomputes only the display name.
func (c *Composer) UpdateDisplayName(ctx context.Context, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Composer.UpdateDisplayName")
	defer span.End()

	members, err := c.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return err
	}

	best, ok := chooseDisplayName(members, c.policy)
	if !ok {
		return c.store.UpdateDisplayName(ctx, aggregateID, nil, nil, models.DisplayNameSourceUndefined)
	}
	id, name := best.RawRecordID, best.Name
	return c.store.UpdateDisplayName(ctx, aggregateID, &id, &name, best.Source)
}

// UpdateLookupKey recomputes only the lookup key.
func (c *Composer) UpdateLookupKey(ctx context.Context, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Composer.UpdateLookupKey")
	defer span.End()

	members, err := c.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return err
	}
	return c.store.UpdateLookupKey(ctx, aggregateID, BuildLookupKey(members))
}

// UpdatePhotoID recomputes only the chosen photo.
func (c *Composer) UpdatePhotoID(ctx context.Context, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Composer.UpdatePhotoID")
	defer span.End()

	members, err := c.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return err
	}
	details, err := c.store.ListDetails(ctx, memberIDs(members), models.DetailKindPhoto)
	if err != nil {
		return err
	}
	return c.store.UpdatePhotoID(ctx, aggregateID, c.choosePhoto(members, details))
}

// UpdateHasPhoneNumber recomputes only the phone-number flag.
func (c *Composer) UpdateHasPhoneNumber(ctx context.Context, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Composer.UpdateHasPhoneNumber")
	defer span.End()

	members, err := c.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return err
	}
	details, err := c.store.ListDetails(ctx, memberIDs(members), models.DetailKindPhone)
	if err != nil {
		return err
	}
	return c.store.UpdateHasPhoneNumber(ctx, aggregateID, hasPhoneNumber(details))
}

// choosePhoto prefers a super-primary photo, then the photo of the account with the
// highest priority. Ties go to the first photo in member order.
func (c *Composer) choosePhoto(members []models.RawRecord, details []models.DetailRow) *int64 {
	accounts := make(map[int64]models.Account, len(members))
	for _, member := range members {
		accounts[member.ID] = member.Account
	}

	var best *models.DetailRow
	bestPriority := 0
	for i := range details {
		d := &details[i]
		if d.Kind != models.DetailKindPhoto {
			continue
		}
		if d.IsSuperPrimary {
			id := d.ID
			return &id
		}
		priority := c.policy.PhotoPriority(accounts[d.RawRecordID])
		if best == nil || priority > bestPriority {
			best, bestPriority = d, priority
		}
	}

	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

func hasPhoneNumber(details []models.DetailRow) bool {
	for _, d := range details {
		if d.Kind == models.DetailKindPhone && d.Value != "" {
			return true
		}
	}
	return false
}

func memberIDs(members []models.RawRecord) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}
