package models

import "fmt"

// ExceptionKind is a user override for a pair of raw records.
type ExceptionKind int

const (
	// ExceptionKindAutomatic is the absence of an override.
	ExceptionKindAutomatic    ExceptionKind = 0
	ExceptionKindKeepTogether ExceptionKind = 1
	ExceptionKindKeepSeparate ExceptionKind = 2
)

func (k ExceptionKind) String() string {
	switch k {
	case ExceptionKindKeepTogether:
		return "keep_together"
	case ExceptionKindKeepSeparate:
		return "keep_separate"
	default:
		return "automatic"
	}
}

// ParseExceptionKind maps "automatic", "keep_together" and "keep_separate" to a kind.
func ParseExceptionKind(s string) (ExceptionKind, error) {
	switch s {
	case "automatic":
		return ExceptionKindAutomatic, nil
	case "keep_together":
		return ExceptionKindKeepTogether, nil
	case "keep_separate":
		return ExceptionKindKeepSeparate, nil
	}
	return ExceptionKindAutomatic, fmt.Errorf("unknown aggregation exception kind %q", s)
}

// AggregationException is stored with RawRecordID1 < RawRecordID2.
type AggregationException struct {
	RawRecordID1 int64         `json:"raw_record_id_1" db:"raw_record_id_1"`
	RawRecordID2 int64         `json:"raw_record_id_2" db:"raw_record_id_2"`
	Kind         ExceptionKind `json:"kind" db:"kind"`
}

// NewAggregationException canonicalizes the pair ordering.
func NewAggregationException(id1, id2 int64, kind ExceptionKind) AggregationException {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return AggregationException{RawRecordID1: id1, RawRecordID2: id2, Kind: kind}
}

// ExceptionHit is an exception seen from one raw record: the other side and its current aggregate.
type ExceptionHit struct {
	OtherRawRecordID int64         `db:"other_raw_record_id"`
	OtherAggregateID *int64        `db:"other_aggregate_id"`
	Kind             ExceptionKind `db:"kind"`
}
