package models

// NameKind is the flavor of a normalized name stored in the lookup index.
type NameKind int

const (
	// NameKindExact is the full name with diacritics kept.
	NameKindExact NameKind = 0
	// NameKindVariant is a token permutation with nicknames replaced by their canonical name.
	NameKindVariant NameKind = 1
	// NameKindCollationKey is a diacritic-insensitive token permutation.
	NameKindCollationKey NameKind = 2
	// NameKindNickname comes from a nickname detail row.
	NameKindNickname NameKind = 3
	// NameKindEmailBased comes from the local part of an email address.
	NameKindEmailBased NameKind = 4
)

// StructuredNameKinds are the kinds derived from the structured name.
var StructuredNameKinds = []NameKind{NameKindExact, NameKindVariant, NameKindCollationKey}

// AllNameKinds lists every kind.
var AllNameKinds = []NameKind{NameKindExact, NameKindVariant, NameKindCollationKey, NameKindNickname, NameKindEmailBased}

// NameLookup is one row of the normalized-name index.
type NameLookup struct {
	RawRecordID    int64    `db:"raw_record_id"`
	NormalizedName string   `db:"normalized_name"`
	Kind           NameKind `db:"name_kind"`
}

// NameLookupHit is a lookup row of another raw record, joined with its aggregate.
type NameLookupHit struct {
	RawRecordID    int64    `db:"raw_record_id"`
	AggregateID    int64    `db:"aggregate_id"`
	NormalizedName string   `db:"normalized_name"`
	Kind           NameKind `db:"name_kind"`
}

// DataHit is another raw record sharing a detail value, joined with its aggregate.
type DataHit struct {
	RawRecordID int64 `db:"raw_record_id"`
	AggregateID int64 `db:"aggregate_id"`
}
