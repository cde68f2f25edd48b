package merging

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	lookupKeySegmentSeparator = ","
	lookupKeyFieldSeparator   = ":"
	lookupKeyFields           = 5
)

// LookupKeySegment identifies one contributing raw record inside a lookup key.
type LookupKeySegment struct {
	Account     models.Account
	RawRecordID int64
	SourceID    string
	DisplayName string
}

// BuildLookupKey encodes one segment per member. Members must be in ascending id order.
func BuildLookupKey(members []models.RawRecord) string {
	segments := make([]string, 0, len(members))
	for _, member := range members {
		sourceID := ""
		if member.SourceID != nil {
			sourceID = *member.SourceID
		}
		segments = append(segments, strings.Join([]string{
			url.QueryEscape(member.Type),
			url.QueryEscape(member.Name),
			strconv.FormatInt(member.ID, 10),
			url.QueryEscape(sourceID),
			url.QueryEscape(member.DisplayName),
		}, lookupKeyFieldSeparator))
	}
	return strings.Join(segments, lookupKeySegmentSeparator)
}

// ParseLookupKey decodes the segments of a lookup key.
func ParseLookupKey(key string) ([]LookupKeySegment, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("empty lookup key")
	}

	parts := strings.Split(key, lookupKeySegmentSeparator)
	segments := make([]LookupKeySegment, 0, len(parts))
	for i, part := range parts {
		fields := strings.Split(part, lookupKeyFieldSeparator)
		if len(fields) != lookupKeyFields {
			return nil, fmt.Errorf("lookup key segment %d: expected %d fields, got %d", i, lookupKeyFields, len(fields))
		}

		decoded := make([]string, len(fields))
		for j, field := range fields {
			value, err := url.QueryUnescape(field)
			if err != nil {
				return nil, fmt.Errorf("lookup key segment %d: %w", i, err)
			}
			decoded[j] = value
		}

		id, err := strconv.ParseInt(decoded[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lookup key segment %d: invalid raw record id: %w", i, err)
		}

		segments = append(segments, LookupKeySegment{
			Account:     models.Account{Type: decoded[0], Name: decoded[1]},
			RawRecordID: id,
			SourceID:    decoded[3],
			DisplayName: decoded[4],
		})
	}
	return segments, nil
}
