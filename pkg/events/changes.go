package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Aggregator queues raw records and flushes them in one write transaction.
type Aggregator interface {
	MarkForAggregation(ctx context.Context, rawRecordID int64, mode models.AggregationMode, force bool)
	InWriteTransaction(ctx context.Context, fn func(ctx context.Context) error) (*models.AggregationResult, error)
}

// NewChangeHandler places the raw record named by each change message in its own transaction
// and emits the resulting aggregate events after commit.
func NewChangeHandler(aggregator Aggregator, emitter *Emitter, logger ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		change := msg.Change
		mode, err := change.AggregationMode()
		if err != nil {
			return err
		}

		result, err := aggregator.InWriteTransaction(ctx, func(ctx context.Context) error {
			aggregator.MarkForAggregation(ctx, change.RawRecordID, mode, change.Force)
			return nil
		})
		if err != nil {
			return err
		}

		logger.WithContext(ctx).WithFields(map[string]any{
			"raw_record_id": change.RawRecordID,
			"mode":          mode.String(),
			"created":       len(result.Created),
			"updated":       len(result.Updated),
			"deleted":       len(result.Deleted),
		}).Debug("Applied raw record change")

		if err := emitter.EmitResult(ctx, result); err != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
		}
		return nil
	}
}
