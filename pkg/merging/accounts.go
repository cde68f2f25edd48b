package merging

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// AccountPolicy supplies the account facts the composer cannot derive from the records.
type AccountPolicy interface {
	// IsWritable reports whether records of the account can be edited by the user.
	IsWritable(account models.Account) bool
	// PhotoPriority ranks the photos of the account. Higher wins.
	PhotoPriority(account models.Account) int
}

// StaticAccountPolicy is an AccountPolicy keyed on account type.
type StaticAccountPolicy struct {
	readOnlyTypes   map[string]bool
	photoPriorities map[string]int
}

func NewStaticAccountPolicy(readOnlyTypes []string, photoPriorities map[string]int) *StaticAccountPolicy {
	p := &StaticAccountPolicy{
		readOnlyTypes:   make(map[string]bool, len(readOnlyTypes)),
		photoPriorities: make(map[string]int, len(photoPriorities)),
	}
	for _, t := range readOnlyTypes {
		p.readOnlyTypes[t] = true
	}
	for t, priority := range photoPriorities {
		p.photoPriorities[t] = priority
	}
	return p
}

func (p *StaticAccountPolicy) IsWritable(account models.Account) bool {
	if account.IsLocal() {
		return true
	}
	return !p.readOnlyTypes[account.Type]
}

func (p *StaticAccountPolicy) PhotoPriority(account models.Account) int {
	return p.photoPriorities[account.Type]
}
