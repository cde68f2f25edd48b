package namelookup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func names(rows []models.NameLookup, kind models.NameKind) []string {
	var out []string
	for _, r := range rows {
		if r.Kind == kind {
			out = append(out, r.NormalizedName)
		}
	}
	return out
}

func TestBuild_StructuredName(t *testing.T) {
	record := &models.RawRecord{ID: 7, GivenName: "Hélène", FamilyName: "Bjørn"}

	rows := Build(record, nil)

	assert.Equal(t, []string{"hélènebjørn"}, names(rows, models.NameKindExact))
	assert.Equal(t, []string{"helenebjorn", "bjornhelene"}, names(rows, models.NameKindCollationKey))
	assert.Empty(t, names(rows, models.NameKindVariant))
	for _, r := range rows {
		assert.Equal(t, int64(7), r.RawRecordID)
	}
}

func TestBuild_NicknameVariants(t *testing.T) {
	bill := Build(&models.RawRecord{ID: 1, GivenName: "Bill", FamilyName: "Gore"}, nil)
	william := Build(&models.RawRecord{ID: 2, GivenName: "William", FamilyName: "Gore"}, nil)

	assert.Equal(t, []string{"williamgore", "gorewilliam"}, names(bill, models.NameKindVariant))
	assert.Equal(t, names(bill, models.NameKindVariant), names(william, models.NameKindVariant))
	assert.Equal(t, []string{"billgore", "gorebill"}, names(bill, models.NameKindCollationKey))
}

func TestBuild_Details(t *testing.T) {
	record := &models.RawRecord{ID: 3}
	details := []models.DetailRow{
		{Kind: models.DetailKindEmail, Value: "Bill.Gore@example.com"},
		{Kind: models.DetailKindNickname, Value: "Billy G"},
		{Kind: models.DetailKindPhone, Value: "555-1234"},
	}

	rows := Build(record, details)

	assert.Empty(t, names(rows, models.NameKindExact))
	assert.Equal(t, []string{"billgore"}, names(rows, models.NameKindEmailBased))
	assert.Equal(t, []string{"billyg"}, names(rows, models.NameKindNickname))
}

func TestBuild_DisplayNameFallback(t *testing.T) {
	record := &models.RawRecord{ID: 4, DisplayName: "Ann Lee", DisplayNameSource: models.DisplayNameSourceStructuredName}
	assert.Equal(t, []string{"annlee"}, names(Build(record, nil), models.NameKindExact))

	org := &models.RawRecord{ID: 5, DisplayName: "Acme Corp", DisplayNameSource: models.DisplayNameSourceOrganization}
	assert.Empty(t, Build(org, nil))
}

func TestPermutations(t *testing.T) {
	assert.Len(t, permutations([]string{"a", "b", "c"}), 6)
	assert.Len(t, permutations([]string{"a", "b", "c", "d"}), 24)
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}, {"e", "d", "c", "b", "a"}}, permutations([]string{"a", "b", "c", "d", "e"}))
}

func TestDeriveDisplayName(t *testing.T) {
	tests := []struct {
		name       string
		record     models.RawRecord
		details    []models.DetailRow
		wantName   string
		wantSource models.DisplayNameSource
	}{
		{
			name:       "structured name",
			record:     models.RawRecord{GivenName: "Ann", FamilyName: "Lee"},
			details:    []models.DetailRow{{Kind: models.DetailKindOrganization, Value: "Acme"}},
			wantName:   "Ann Lee",
			wantSource: models.DisplayNameSourceStructuredName,
		},
		{
			name: "organization over phone",
			details: []models.DetailRow{
				{Kind: models.DetailKindPhone, Value: "555-1234"},
				{Kind: models.DetailKindOrganization, Value: "Acme"},
			},
			wantName:   "Acme",
			wantSource: models.DisplayNameSourceOrganization,
		},
		{
			name: "primary email",
			details: []models.DetailRow{
				{Kind: models.DetailKindEmail, Value: "first@example.com"},
				{Kind: models.DetailKindEmail, Value: "main@example.com", IsPrimary: true},
			},
			wantName:   "main@example.com",
			wantSource: models.DisplayNameSourceEmail,
		},
		{
			name:       "nothing",
			wantName:   "",
			wantSource: models.DisplayNameSourceUndefined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, source := DeriveDisplayName(&tt.record, tt.details)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestApplyDisplayName(t *testing.T) {
	supplied := &models.RawRecord{GivenName: "Ann", DisplayName: "Annie"}
	ApplyDisplayName(supplied, nil)
	assert.Equal(t, "Annie", supplied.DisplayName)
	assert.Equal(t, models.DisplayNameSourceStructuredName, supplied.DisplayNameSource)

	derived := &models.RawRecord{}
	ApplyDisplayName(derived, []models.DetailRow{{Kind: models.DetailKindNickname, Value: "Ace"}})
	assert.Equal(t, "Ace", derived.DisplayName)
	assert.Equal(t, models.DisplayNameSourceNickname, derived.DisplayNameSource)
}
