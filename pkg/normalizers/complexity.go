package normalizers

import (
	"sync"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	complexityMu       sync.Mutex
	complexityCollator = collate.New(language.Und)
)

// CompareComplexity returns a positive number when a is a more complex name than b,
// negative when b is, and zero when they are indistinguishable.
// More tokens win, then more letters and digits, then the later tertiary collation order
// (accents and capitals sort after their plain forms), then the longer raw string.
func CompareComplexity(a, b string) int {
	if d := len(Tokenize(a)) - len(Tokenize(b)); d != 0 {
		return d
	}

	cleanA, cleanB := lettersAndDigits(a), lettersAndDigits(b)
	if d := len([]rune(cleanA)) - len([]rune(cleanB)); d != 0 {
		return d
	}

	complexityMu.Lock()
	d := complexityCollator.CompareString(cleanA, cleanB)
	complexityMu.Unlock()
	if d != 0 {
		return d
	}

	return len(a) - len(b)
}

func lettersAndDigits(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
