package models

import "sort"

// Aggregate is the merged, user-visible entity composed from one or more raw records.
// Every field besides ID is derived from the members.
type Aggregate struct {
	ID                int64             `json:"id" db:"id"`
	NameRawRecordID   *int64            `json:"name_raw_record_id,omitempty" db:"name_raw_record_id"`
	DisplayName       *string           `json:"display_name,omitempty" db:"display_name"`
	DisplayNameSource DisplayNameSource `json:"display_name_source" db:"display_name_source"`
	LookupKey         string            `json:"lookup_key" db:"lookup_key"`
	PhotoID           *int64            `json:"photo_id,omitempty" db:"photo_id"`
	SendToVoicemail   bool              `json:"send_to_voicemail" db:"send_to_voicemail"`
	CustomRingtone    *string           `json:"custom_ringtone,omitempty" db:"custom_ringtone"`
	LastTimeContacted int64             `json:"last_time_contacted" db:"last_time_contacted"`
	TimesContacted    int               `json:"times_contacted" db:"times_contacted"`
	Starred           bool              `json:"starred" db:"starred"`
	HasPhoneNumber    bool              `json:"has_phone_number" db:"has_phone_number"`
	IsRestricted      bool              `json:"is_restricted" db:"is_restricted"`
}

// GetDisplayName returns the display name or an empty string.
func (a *Aggregate) GetDisplayName() string {
	if a.DisplayName == nil {
		return ""
	}
	return *a.DisplayName
}

// AggregateState is the derived state computed for an aggregate from its members.
type AggregateState struct {
	NameRawRecordID   *int64
	DisplayName       *string
	DisplayNameSource DisplayNameSource
	LookupKey         string
	PhotoID           *int64
	SendToVoicemail   bool
	CustomRingtone    *string
	LastTimeContacted int64
	TimesContacted    int
	Starred           bool
	HasPhoneNumber    bool
	IsRestricted      bool
}

// Apply copies the derived state onto the aggregate.
func (s AggregateState) Apply(a *Aggregate) {
	a.NameRawRecordID = s.NameRawRecordID
	a.DisplayName = s.DisplayName
	a.DisplayNameSource = s.DisplayNameSource
	a.LookupKey = s.LookupKey
	a.PhotoID = s.PhotoID
	a.SendToVoicemail = s.SendToVoicemail
	a.CustomRingtone = s.CustomRingtone
	a.LastTimeContacted = s.LastTimeContacted
	a.TimesContacted = s.TimesContacted
	a.Starred = s.Starred
	a.HasPhoneNumber = s.HasPhoneNumber
	a.IsRestricted = s.IsRestricted
}

// AggregationResult lists the aggregates touched by one aggregation pass.
type AggregationResult struct {
	Created []int64 `json:"created,omitempty"`
	Updated []int64 `json:"updated,omitempty"`
	Deleted []int64 `json:"deleted,omitempty"`
}

// Empty reports whether the pass touched nothing.
func (r *AggregationResult) Empty() bool {
	return len(r.Created) == 0 && len(r.Updated) == 0 && len(r.Deleted) == 0
}

// Merge adds the aggregates touched by another pass. An aggregate deleted by either pass is
// reported as deleted only.
func (r *AggregationResult) Merge(other *AggregationResult) {
	if other == nil {
		return
	}
	deleted := union(r.Deleted, other.Deleted)
	gone := make(map[int64]bool, len(deleted))
	for _, id := range deleted {
		gone[id] = true
	}
	r.Created = without(union(r.Created, other.Created), gone)
	for _, id := range r.Created {
		gone[id] = true
	}
	r.Updated = without(union(r.Updated, other.Updated), gone)
	r.Deleted = deleted
}

func union(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	var out []int64
	for _, id := range append(append([]int64(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func without(ids []int64, drop map[int64]bool) []int64 {
	var out []int64
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
