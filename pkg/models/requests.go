package models

// DetailRequest is one detail row in a raw record write.
type DetailRequest struct {
	Kind           DetailKind `json:"kind" validate:"required,oneof=phone email photo nickname organization group_membership"`
	Value          string     `json:"value" validate:"required"`
	IsPrimary      bool       `json:"is_primary"`
	IsSuperPrimary bool       `json:"is_super_primary"`
}

// RawRecordRequest is the body of raw record create and update calls.
type RawRecordRequest struct {
	AccountType       string          `json:"account_type"`
	AccountName       string          `json:"account_name"`
	SourceID          *string         `json:"source_id,omitempty"`
	Prefix            string          `json:"prefix"`
	GivenName         string          `json:"given_name"`
	MiddleName        string          `json:"middle_name"`
	FamilyName        string          `json:"family_name"`
	Suffix            string          `json:"suffix"`
	DisplayName       string          `json:"display_name"`
	Starred           bool            `json:"starred"`
	SendToVoicemail   bool            `json:"send_to_voicemail"`
	CustomRingtone    *string         `json:"custom_ringtone,omitempty"`
	LastTimeContacted int64           `json:"last_time_contacted" validate:"gte=0"`
	TimesContacted    int             `json:"times_contacted" validate:"gte=0"`
	IsRestricted      bool            `json:"is_restricted"`
	AggregationMode   string          `json:"aggregation_mode" validate:"omitempty,oneof=default suspended disabled"`
	Force             bool            `json:"force"`
	Details           []DetailRequest `json:"details" validate:"dive"`
}

// Apply copies the request onto record. Identity, membership and the verified flag are kept.
func (r RawRecordRequest) Apply(record *RawRecord) {
	record.Account = Account{Type: r.AccountType, Name: r.AccountName}
	record.SourceID = r.SourceID
	record.Prefix = r.Prefix
	record.GivenName = r.GivenName
	record.MiddleName = r.MiddleName
	record.FamilyName = r.FamilyName
	record.Suffix = r.Suffix
	record.DisplayName = r.DisplayName
	record.DisplayNameSource = DisplayNameSourceUndefined
	record.Starred = r.Starred
	record.SendToVoicemail = r.SendToVoicemail
	record.CustomRingtone = r.CustomRingtone
	record.LastTimeContacted = r.LastTimeContacted
	record.TimesContacted = r.TimesContacted
	record.IsRestricted = r.IsRestricted
	record.AggregationMode, _ = ParseAggregationMode(r.AggregationMode)
}

// DetailRows converts the requested details.
func (r RawRecordRequest) DetailRows() []DetailRow {
	rows := make([]DetailRow, 0, len(r.Details))
	for _, d := range r.Details {
		rows = append(rows, DetailRow{
			Kind:           d.Kind,
			Value:          d.Value,
			IsPrimary:      d.IsPrimary,
			IsSuperPrimary: d.IsSuperPrimary,
		})
	}
	return rows
}

// RawRecordWithDetails is a raw record as returned by the API.
type RawRecordWithDetails struct {
	RawRecord
	Details []DetailRow `json:"details"`
}

// RawRecordResponse is returned by raw record writes.
type RawRecordResponse struct {
	RawRecord   RawRecordWithDetails `json:"raw_record"`
	Aggregation *AggregationResult  `json:"aggregation"`
}

type AggregationExceptionRequest struct {
	RawRecordID1 int64  `json:"raw_record_id_1" validate:"required,gt=0"`
	RawRecordID2 int64  `json:"raw_record_id_2" validate:"required,gt=0"`
	Kind         string `json:"kind" validate:"required,oneof=automatic keep_together keep_separate"`
}

// Recompute parts.
const (
	RecomputeAll            = "all"
	RecomputeDisplayName    = "display_name"
	RecomputeLookupKey      = "lookup_key"
	RecomputePhoto          = "photo"
	RecomputeHasPhoneNumber = "has_phone_number"
)

type RecomputeRequest struct {
	Part string `json:"part" validate:"omitempty,oneof=all display_name lookup_key photo has_phone_number"`
}

type AggregationEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type AggregationEnabledResponse struct {
	Enabled bool `json:"enabled"`
	Pending int  `json:"pending"`
}
