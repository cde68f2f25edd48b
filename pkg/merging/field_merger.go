package merging

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// MergeStrategy decides how the values of one option are combined across members.
type MergeStrategy string

const (
	// MergeStrategyAll is true only when every member is true.
	MergeStrategyAll MergeStrategy = "all"
	// MergeStrategyAny is true when any member is true.
	MergeStrategyAny MergeStrategy = "any"
	// MergeStrategyMax takes the largest value.
	MergeStrategyMax MergeStrategy = "max"
	// MergeStrategyFirstValue takes the first non-empty value in member order.
	MergeStrategyFirstValue MergeStrategy = "first_value"
)

// OptionStrategies holds the strategy of each merged option.
type OptionStrategies struct {
	SendToVoicemail   MergeStrategy
	CustomRingtone    MergeStrategy
	LastTimeContacted MergeStrategy
	TimesContacted    MergeStrategy
	Starred           MergeStrategy
}

// DefaultOptionStrategies sends to voicemail only when all members agree, keeps the first
// ringtone, the latest contact time and the highest contact count, and stars when any member does.
var DefaultOptionStrategies = OptionStrategies{
	SendToVoicemail:   MergeStrategyAll,
	CustomRingtone:    MergeStrategyFirstValue,
	LastTimeContacted: MergeStrategyMax,
	TimesContacted:    MergeStrategyMax,
	Starred:           MergeStrategyAny,
}

// Options are the merged contact options of an aggregate.
type Options struct {
	SendToVoicemail   bool
	CustomRingtone    *string
	LastTimeContacted int64
	TimesContacted    int
	Starred           bool
}

// FieldMerger handles option-level merge logic
type FieldMerger struct {
	strategies OptionStrategies
}

// NewFieldMerger creates a FieldMerger with the default strategies
func NewFieldMerger() *FieldMerger {
	return NewFieldMergerWithStrategies(DefaultOptionStrategies)
}

func NewFieldMergerWithStrategies(strategies OptionStrategies) *FieldMerger {
	return &FieldMerger{strategies: strategies}
}

// MergeOptions merges the options of the members, which must be in ascending id order.
func (m *FieldMerger) MergeOptions(members []models.RawRecord) Options {
	if len(members) == 0 {
		return Options{}
	}

	voicemail := make([]bool, 0, len(members))
	starred := make([]bool, 0, len(members))
	ringtones := make([]*string, 0, len(members))
	lastContacted := make([]int64, 0, len(members))
	timesContacted := make([]int64, 0, len(members))
	for _, member := range members {
		voicemail = append(voicemail, member.SendToVoicemail)
		starred = append(starred, member.Starred)
		ringtones = append(ringtones, member.CustomRingtone)
		lastContacted = append(lastContacted, member.LastTimeContacted)
		timesContacted = append(timesContacted, int64(member.TimesContacted))
	}

	return Options{
		SendToVoicemail:   m.mergeBool(voicemail, m.strategies.SendToVoicemail),
		CustomRingtone:    m.mergeString(ringtones, m.strategies.CustomRingtone),
		LastTimeContacted: m.mergeInt(lastContacted, m.strategies.LastTimeContacted),
		TimesContacted:    int(m.mergeInt(timesContacted, m.strategies.TimesContacted)),
		Starred:           m.mergeBool(starred, m.strategies.Starred),
	}
}

func (m *FieldMerger) mergeBool(values []bool, strategy MergeStrategy) bool {
	if len(values) == 0 {
		return false
	}

	switch strategy {
	case MergeStrategyAll:
		for _, v := range values {
			if !v {
				return false
			}
		}
		return true
	case MergeStrategyFirstValue:
		return values[0]
	default:
		for _, v := range values {
			if v {
				return true
			}
		}
		return false
	}
}

func (m *FieldMerger) mergeInt(values []int64, strategy MergeStrategy) int64 {
	if len(values) == 0 {
		return 0
	}

	switch strategy {
	case MergeStrategyFirstValue:
		for _, v := range values {
			if v != 0 {
				return v
			}
		}
		return 0
	default:
		result := values[0]
		for _, v := range values[1:] {
			if v > result {
				result = v
			}
		}
		return result
	}
}

func (m *FieldMerger) mergeString(values []*string, strategy MergeStrategy) *string {
	switch strategy {
	case MergeStrategyMax:
		var result *string
		for _, v := range values {
			if v != nil && *v != "" && (result == nil || *v > *result) {
				result = v
			}
		}
		return copyString(result)
	default:
		for _, v := range values {
			if v != nil && *v != "" {
				return copyString(v)
			}
		}
		return nil
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
