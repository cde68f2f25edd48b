// Package namelookup builds and loads the normalized-name index used as matching seeds.
package namelookup

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/nicknames"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// MaxPermutationTokens is the largest token count for which every ordering is indexed.
// Longer names index only the given order and its reverse.
const MaxPermutationTokens = 4

type lookupKey struct {
	kind models.NameKind
	name string
}

type builder struct {
	rawRecordID int64
	seen        map[lookupKey]bool
	rows        []models.NameLookup
}

func (b *builder) add(kind models.NameKind, name string) {
	name = normalizers.Truncate(name)
	if name == "" {
		return
	}
	k := lookupKey{kind: kind, name: name}
	if b.seen[k] {
		return
	}
	b.seen[k] = true
	b.rows = append(b.rows, models.NameLookup{RawRecordID: b.rawRecordID, NormalizedName: name, Kind: kind})
}

// Build returns the name-lookup rows of a raw record.
func Build(record *models.RawRecord, details []models.DetailRow) []models.NameLookup {
	b := &builder{rawRecordID: record.ID, seen: make(map[lookupKey]bool)}

	if tokens := nameTokens(record); len(tokens) > 0 {
		b.add(models.NameKindExact, strings.Join(tokens, ""))

		folded := make([]string, len(tokens))
		canonical := make([]string, len(tokens))
		hasNickname := false
		for i, t := range tokens {
			folded[i] = normalizers.TokenKey(t)
			canonical[i] = folded[i]
			if c, ok := nicknames.Canonical(t); ok {
				canonical[i] = c
				hasNickname = true
			}
		}

		for _, perm := range permutations(folded) {
			b.add(models.NameKindCollationKey, strings.Join(perm, ""))
		}
		if hasNickname {
			for _, perm := range permutations(canonical) {
				b.add(models.NameKindVariant, strings.Join(perm, ""))
			}
		}
	}

	for _, d := range details {
		switch d.Kind {
		case models.DetailKindNickname:
			b.add(models.NameKindNickname, normalizers.NameKey(d.Value))
		case models.DetailKindEmail:
			b.add(models.NameKindEmailBased, normalizers.NameKey(normalizers.EmailLocalPart(d.Value)))
		}
	}

	return b.rows
}

// nameTokens returns the structured-name tokens, falling back to a display name that was
// itself taken from a structured name.
func nameTokens(record *models.RawRecord) []string {
	if record.HasStructuredName() {
		return normalizers.Tokenize(strings.Join([]string{record.GivenName, record.MiddleName, record.FamilyName}, " "))
	}
	if record.DisplayNameSource == models.DisplayNameSourceStructuredName {
		return normalizers.Tokenize(record.DisplayName)
	}
	return nil
}

func permutations(tokens []string) [][]string {
	if len(tokens) > MaxPermutationTokens {
		reversed := make([]string, len(tokens))
		for i, t := range tokens {
			reversed[len(tokens)-1-i] = t
		}
		return [][]string{tokens, reversed}
	}

	var out [][]string
	var permute func(k int, cur []string)
	permute = func(k int, cur []string) {
		if k == len(cur) {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i := k; i < len(cur); i++ {
			cur[k], cur[i] = cur[i], cur[k]
			permute(k+1, cur)
			cur[k], cur[i] = cur[i], cur[k]
		}
	}
	permute(0, append([]string(nil), tokens...))
	return out
}
