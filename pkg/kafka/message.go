// Package kafka publishes aggregate change events and consumes raw record change notifications.
package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventAggregateCreated = "aggregate.created"
	EventAggregateUpdated = "aggregate.updated"
	EventAggregateDeleted = "aggregate.deleted"
)

func aggregateKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Change *RawRecordChange
}

// RawRecordChange asks for a raw record to be aggregated again.
type RawRecordChange struct {
	RawRecordID int64  `json:"raw_record_id"`
	Mode        string `json:"mode,omitempty"`
	Force       bool   `json:"force,omitempty"`
}

// AggregationMode parses the requested mode. An empty mode is the default one.
func (c *RawRecordChange) AggregationMode() (models.AggregationMode, error) {
	mode, ok := models.ParseAggregationMode(c.Mode)
	if !ok {
		return models.AggregationModeDefault, fmt.Errorf("unknown aggregation mode %q", c.Mode)
	}
	return mode, nil
}

// ParseRawRecordChange parses the message value as a raw record change
func (m *IncomingMessage) ParseRawRecordChange() error {
	var change RawRecordChange
	if err := json.Unmarshal(m.Value, &change); err != nil {
		return err
	}
	if change.RawRecordID <= 0 {
		return fmt.Errorf("raw record change without raw_record_id")
	}
	if _, err := change.AggregationMode(); err != nil {
		return err
	}
	m.Change = &change
	return nil
}
