// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AggregationDecisionsTotal tracks placement decisions by outcome
	AggregationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "decisions_total",
			Help:      "Total number of raw record placement decisions by outcome",
		},
		[]string{"outcome"},
	)

	// AggregationSplitsTotal tracks aggregates split because of an account conflict
	AggregationSplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "splits_total",
			Help:      "Total number of aggregates split apart",
		},
	)

	// AggregationPassDuration tracks the duration of a pending-queue flush
	AggregationPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "pass_duration_seconds",
			Help:      "Duration of aggregation passes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// AggregationPending tracks raw records waiting for aggregation
	AggregationPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "pending",
			Help:      "Number of raw records marked for aggregation",
		},
	)

	// SuggestionsTotal tracks suggestion queries
	SuggestionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "suggestions",
			Name:      "queries_total",
			Help:      "Total number of aggregation suggestion queries",
		},
	)

	// KafkaMessagesPublished tracks messages published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesConsumed tracks messages consumed from Kafka
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)

	// LockWaitDuration tracks time spent waiting for the writer lock
	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the aggregation writer lock",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// RecordDecision records the outcome of one placement decision.
func RecordDecision(outcome string) {
	AggregationDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSplit records one split aggregate.
func RecordSplit() {
	AggregationSplitsTotal.Inc()
}

// RecordPass records the duration of one aggregation pass.
func RecordPass(durationSeconds float64) {
	AggregationPassDuration.Observe(durationSeconds)
}

// SetPending sets the pending-queue size.
func SetPending(n int) {
	AggregationPending.Set(float64(n))
}

// RecordSuggestionQuery records one suggestion query.
func RecordSuggestionQuery() {
	SuggestionsTotal.Inc()
}

// RecordKafkaPublish records a Kafka publish.
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordKafkaConsume records a consumed Kafka message.
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}

// RecordLockWait records the time spent acquiring the writer lock.
func RecordLockWait(durationSeconds float64) {
	LockWaitDuration.Observe(durationSeconds)
}
