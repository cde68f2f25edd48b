package namelookup

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// DeriveDisplayName picks the display name of a raw record from the best available data:
// structured name, organization, nickname, phone, then email.
func DeriveDisplayName(record *models.RawRecord, details []models.DetailRow) (string, models.DisplayNameSource) {
	if record.HasStructuredName() {
		return record.StructuredName(), models.DisplayNameSourceStructuredName
	}

	for _, candidate := range []struct {
		kind   models.DetailKind
		source models.DisplayNameSource
	}{
		{models.DetailKindOrganization, models.DisplayNameSourceOrganization},
		{models.DetailKindNickname, models.DisplayNameSourceNickname},
		{models.DetailKindPhone, models.DisplayNameSourcePhone},
		{models.DetailKindEmail, models.DisplayNameSourceEmail},
	} {
		if value := firstValue(details, candidate.kind); value != "" {
			return value, candidate.source
		}
	}

	return "", models.DisplayNameSourceUndefined
}

// ApplyDisplayName fills the display name and its source when the caller left them empty.
func ApplyDisplayName(record *models.RawRecord, details []models.DetailRow) {
	name, source := DeriveDisplayName(record, details)
	if strings.TrimSpace(record.DisplayName) == "" {
		record.DisplayName = name
		record.DisplayNameSource = source
		return
	}
	if record.DisplayNameSource == models.DisplayNameSourceUndefined {
		record.DisplayNameSource = source
	}
}

// firstValue prefers the primary row of a kind, then the first one.
func firstValue(details []models.DetailRow, kind models.DetailKind) string {
	first := ""
	for _, d := range details {
		if d.Kind != kind {
			continue
		}
		value := strings.TrimSpace(d.Value)
		if value == "" {
			continue
		}
		if d.IsPrimary || d.IsSuperPrimary {
			return value
		}
		if first == "" {
			first = value
		}
	}
	return first
}
