// Package nicknames holds the fixed table of common given-name nicknames.
package nicknames

import "github.com/Ramsey-B/fern/pkg/normalizers"

// clusters maps a canonical given name to the nicknames that resolve to it.
// A nickname belongs to exactly one cluster.
var clusters = map[string][]string{
	"abigail":     {"abby", "gail"},
	"albert":      {"al", "bert"},
	"alexander":   {"alex", "xander", "sasha"},
	"andrew":      {"andy", "drew"},
	"anthony":     {"tony"},
	"barbara":     {"barb", "babs"},
	"benjamin":    {"ben", "benny", "benji"},
	"catherine":   {"cathy", "cat"},
	"charles":     {"charlie", "chuck", "chas"},
	"christopher": {"chris", "kit"},
	"daniel":      {"dan", "danny"},
	"david":       {"dave", "davey"},
	"deborah":     {"deb", "debbie"},
	"donald":      {"don", "donnie"},
	"edward":      {"ed", "eddie", "ted", "ned"},
	"elizabeth":   {"liz", "beth", "betty", "eliza", "lizzie", "libby"},
	"frederick":   {"fred", "freddie"},
	"gregory":     {"greg"},
	"henry":       {"hank", "harry"},
	"jacob":       {"jake"},
	"james":       {"jim", "jimmy", "jamie"},
	"jennifer":    {"jen", "jenny"},
	"john":        {"jack", "johnny"},
	"joseph":      {"joe", "joey"},
	"katherine":   {"kate", "kathy", "katie", "kat"},
	"kenneth":     {"ken", "kenny"},
	"lawrence":    {"larry", "laurie"},
	"margaret":    {"maggie", "meg", "peggy", "marge"},
	"matthew":     {"matt"},
	"michael":     {"mike", "mikey", "mick"},
	"nicholas":    {"nick", "nicky"},
	"patricia":    {"pat", "patty", "trish"},
	"peter":       {"pete"},
	"rebecca":     {"becky", "becca"},
	"richard":     {"rick", "dick", "rich", "ricky"},
	"robert":      {"bob", "bobby", "rob", "robbie"},
	"ronald":      {"ron", "ronnie"},
	"samuel":      {"sam", "sammy"},
	"stephen":     {"steve", "stevie"},
	"susan":       {"sue", "susie"},
	"theodore":    {"theo", "teddy"},
	"thomas":      {"tom", "tommy"},
	"timothy":     {"tim", "timmy"},
	"victoria":    {"vicky", "tori"},
	"william":     {"bill", "billy", "will", "willy", "liam"},
}

var canonical = buildIndex()

func buildIndex() map[string]string {
	index := make(map[string]string)
	for name, variants := range clusters {
		index[name] = name
		for _, v := range variants {
			index[v] = name
		}
	}
	return index
}

// Canonical returns the canonical name of the cluster a name token belongs to.
func Canonical(token string) (string, bool) {
	name, ok := canonical[normalizers.TokenKey(token)]
	return name, ok
}

// Equivalent reports whether two name tokens resolve to the same cluster.
func Equivalent(a, b string) bool {
	ca, ok := Canonical(a)
	if !ok {
		return false
	}
	cb, ok := Canonical(b)
	return ok && ca == cb
}
