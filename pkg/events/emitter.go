// Package events emits aggregate lifecycle events after a write commits
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Publisher sends a batch of aggregate events.
type Publisher interface {
	PublishAggregateEvents(ctx context.Context, events []*kafka.AggregateEvent) error
}

// Reader loads the state carried by created and updated events.
type Reader interface {
	GetAggregate(ctx context.Context, id int64) (*models.Aggregate, error)
	ListMembers(ctx context.Context, aggregateID int64) ([]models.RawRecord, error)
}

// Emitter handles event emission for fern. A nil Emitter emits nothing.
type Emitter struct {
	publisher Publisher
	reader    Reader
	logger    ectologger.Logger
}

func NewEmitter(publisher Publisher, reader Reader, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		reader:    reader,
		logger:    logger,
	}
}

// EmitResult publishes one event per aggregate in the result.
func (e *Emitter) EmitResult(ctx context.Context, result *models.AggregationResult) error {
	if e == nil || e.publisher == nil || result == nil || result.Empty() {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResult")
	defer span.End()

	events := make([]*kafka.AggregateEvent, 0, len(result.Created)+len(result.Updated)+len(result.Deleted))
	for _, group := range []struct {
		eventType string
		ids       []int64
	}{
		{kafka.EventAggregateCreated, result.Created},
		{kafka.EventAggregateUpdated, result.Updated},
	} {
		for _, id := range group.ids {
			event, err := e.loadEvent(ctx, group.eventType, id)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
	}
	for _, id := range result.Deleted {
		events = append(events, &kafka.AggregateEvent{EventType: kafka.EventAggregateDeleted, AggregateID: id})
	}

	if err := e.publisher.PublishAggregateEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
		return err
	}
	return nil
}

func (e *Emitter) loadEvent(ctx context.Context, eventType string, id int64) (*kafka.AggregateEvent, error) {
	aggregate, err := e.reader.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := e.reader.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(aggregate)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]int64, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	return &kafka.AggregateEvent{
		EventType:    eventType,
		AggregateID:  id,
		Data:         data,
		RawRecordIDs: memberIDs,
	}, nil
}
