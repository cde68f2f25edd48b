package merging

import (
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// DisplayNameCandidate is the best display name found so far while scanning members.
type DisplayNameCandidate struct {
	RawRecordID int64
	Name        string
	Source      models.DisplayNameSource
	Verified    bool
	Writable    bool
}

// BetterThan reports whether c should replace best. An empty name never replaces a
// present one. Otherwise a verified name wins, then the higher source rank, then a
// writable account, then the more complex name.
func (c DisplayNameCandidate) BetterThan(best DisplayNameCandidate) bool {
	if c.Name == "" {
		return false
	}
	if best.Name == "" {
		return true
	}
	if c.Verified != best.Verified {
		return c.Verified
	}
	if c.Source != best.Source {
		return c.Source > best.Source
	}
	if c.Writable != best.Writable {
		return c.Writable
	}
	return normalizers.CompareComplexity(c.Name, best.Name) > 0
}

// chooseDisplayName scans the members in order and returns the winning candidate.
func chooseDisplayName(members []models.RawRecord, policy AccountPolicy) (DisplayNameCandidate, bool) {
	var best DisplayNameCandidate
	found := false
	for _, member := range members {
		candidate := DisplayNameCandidate{
			RawRecordID: member.ID,
			Name:        member.DisplayName,
			Source:      member.DisplayNameSource,
			Verified:    member.NameVerified,
			Writable:    policy.IsWritable(member.Account),
		}
		if candidate.BetterThan(best) {
			best = candidate
			found = true
		}
	}
	return best, found
}
