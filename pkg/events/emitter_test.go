package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

type recordingPublisher struct {
	events []*kafka.AggregateEvent
}

func (p *recordingPublisher) PublishAggregateEvents(_ context.Context, events []*kafka.AggregateEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func TestEmitter_EmitResult(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)

	rawID := testutil.Insert(t, s, testutil.Record(testutil.Google, "John", "Smith"))
	aggregateID, err := s.CreateAggregate(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetRawRecordAggregate(ctx, rawID, aggregateID))

	publisher := &recordingPublisher{}
	emitter := events.NewEmitter(publisher, s, testutil.Logger())

	err = emitter.EmitResult(ctx, &models.AggregationResult{
		Updated: []int64{aggregateID},
		Deleted: []int64{aggregateID + 10},
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 2)
	updated := publisher.events[0]
	assert.Equal(t, kafka.EventAggregateUpdated, updated.EventType)
	assert.Equal(t, []int64{rawID}, updated.RawRecordIDs)

	var aggregate models.Aggregate
	require.NoError(t, json.Unmarshal(updated.Data, &aggregate))
	assert.Equal(t, aggregateID, aggregate.ID)

	deleted := publisher.events[1]
	assert.Equal(t, kafka.EventAggregateDeleted, deleted.EventType)
	assert.Equal(t, aggregateID+10, deleted.AggregateID)
	assert.Empty(t, deleted.Data)
}

func TestEmitter_NothingToEmit(t *testing.T) {
	var nilEmitter *events.Emitter
	assert.NoError(t, nilEmitter.EmitResult(context.Background(), &models.AggregationResult{Created: []int64{1}}))

	publisher := &recordingPublisher{}
	emitter := events.NewEmitter(publisher, nil, testutil.Logger())
	require.NoError(t, emitter.EmitResult(context.Background(), &models.AggregationResult{}))
	assert.Empty(t, publisher.events)
}
