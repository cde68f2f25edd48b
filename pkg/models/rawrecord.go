package models

import "strings"

// Account identifies the account a raw record was sourced from. The zero value is the local account.
type Account struct {
	Type string `json:"account_type" db:"account_type"`
	Name string `json:"account_name" db:"account_name"`
}

// IsLocal reports whether the account is the local (account-less) one.
func (a Account) IsLocal() bool {
	return a.Type == "" && a.Name == ""
}

// DisplayNameSource ranks the kind of data a display name was derived from. Higher wins.
type DisplayNameSource int

const (
	DisplayNameSourceUndefined      DisplayNameSource = 0
	DisplayNameSourceEmail          DisplayNameSource = 10
	DisplayNameSourcePhone          DisplayNameSource = 20
	DisplayNameSourceNickname       DisplayNameSource = 30
	DisplayNameSourceOrganization   DisplayNameSource = 35
	DisplayNameSourceStructuredName DisplayNameSource = 40
)

// AggregationMode controls how a queued raw record is placed.
type AggregationMode int

const (
	// AggregationModeDefault searches for a matching aggregate.
	AggregationModeDefault AggregationMode = 0
	// AggregationModeDisabled leaves the raw record where it is.
	AggregationModeDisabled AggregationMode = 1
	// AggregationModeSuspended keeps the current aggregate without searching for matches.
	AggregationModeSuspended AggregationMode = 2
)

func (m AggregationMode) String() string {
	switch m {
	case AggregationModeDisabled:
		return "disabled"
	case AggregationModeSuspended:
		return "suspended"
	default:
		return "default"
	}
}

// ParseAggregationMode maps "default", "suspended" and "disabled" to a mode.
func ParseAggregationMode(s string) (AggregationMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return AggregationModeDefault, true
	case "suspended":
		return AggregationModeSuspended, true
	case "disabled":
		return AggregationModeDisabled, true
	}
	return AggregationModeDefault, false
}

// RawRecord is one source-provided identity record.
type RawRecord struct {
	ID          int64  `json:"id" db:"id"`
	AggregateID *int64 `json:"aggregate_id,omitempty" db:"aggregate_id"`
	Account
	SourceID *string `json:"source_id,omitempty" db:"source_id"`

	Prefix     string `json:"prefix,omitempty" db:"prefix"`
	GivenName  string `json:"given_name,omitempty" db:"given_name"`
	MiddleName string `json:"middle_name,omitempty" db:"middle_name"`
	FamilyName string `json:"family_name,omitempty" db:"family_name"`
	Suffix     string `json:"suffix,omitempty" db:"suffix"`

	DisplayName       string            `json:"display_name" db:"display_name"`
	DisplayNameSource DisplayNameSource `json:"display_name_source" db:"display_name_source"`
	NameVerified      bool              `json:"name_verified" db:"name_verified"`

	Starred           bool    `json:"starred" db:"starred"`
	SendToVoicemail   bool    `json:"send_to_voicemail" db:"send_to_voicemail"`
	CustomRingtone    *string `json:"custom_ringtone,omitempty" db:"custom_ringtone"`
	LastTimeContacted int64   `json:"last_time_contacted" db:"last_time_contacted"`
	TimesContacted    int     `json:"times_contacted" db:"times_contacted"`
	IsRestricted      bool    `json:"is_restricted" db:"is_restricted"`

	AggregationMode AggregationMode `json:"aggregation_mode" db:"aggregation_mode"`
}

// HasStructuredName reports whether any structured-name field is present.
func (r *RawRecord) HasStructuredName() bool {
	return strings.TrimSpace(r.GivenName+r.MiddleName+r.FamilyName) != ""
}

// StructuredName joins the structured-name fields in display order.
func (r *RawRecord) StructuredName() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{r.Prefix, r.GivenName, r.MiddleName, r.FamilyName, r.Suffix} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// GetAggregateID returns the aggregate id, or zero when the record is not placed yet.
func (r *RawRecord) GetAggregateID() int64 {
	if r.AggregateID == nil {
		return 0
	}
	return *r.AggregateID
}

// DetailKind is the type of a detail row.
type DetailKind string

const (
	DetailKindPhone           DetailKind = "phone"
	DetailKindEmail           DetailKind = "email"
	DetailKindPhoto           DetailKind = "photo"
	DetailKindNickname        DetailKind = "nickname"
	DetailKindOrganization    DetailKind = "organization"
	DetailKindGroupMembership DetailKind = "group_membership"
)

// Valid reports whether the kind is known.
func (k DetailKind) Valid() bool {
	switch k {
	case DetailKindPhone, DetailKindEmail, DetailKindPhoto, DetailKindNickname, DetailKindOrganization, DetailKindGroupMembership:
		return true
	}
	return false
}

// DetailRow is one typed attribute of a raw record.
type DetailRow struct {
	ID              int64      `json:"id" db:"id"`
	RawRecordID     int64      `json:"raw_record_id" db:"raw_record_id"`
	Kind            DetailKind `json:"kind" db:"kind"`
	Value           string     `json:"value" db:"value"`
	NormalizedValue string     `json:"normalized_value" db:"normalized_value"`
	IsPrimary       bool       `json:"is_primary" db:"is_primary"`
	IsSuperPrimary  bool       `json:"is_super_primary" db:"is_super_primary"`
}
