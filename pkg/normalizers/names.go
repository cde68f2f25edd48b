package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxMatchedNameLength caps the characters of a normalized name considered for matching.
const MaxMatchedNameLength = 30

// letters without a canonical decomposition that still fold to a base letter
var foldExceptions = map[rune]string{
	'ø': "o", 'Ø': "O",
	'đ': "d", 'Đ': "D",
	'ł': "l", 'Ł': "L",
	'ħ': "h", 'Ħ': "H",
	'ı': "i",
	'ß': "ss",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'þ': "th", 'Þ': "TH",
}

// FoldDiacritics strips combining marks and maps stroked letters to their base letter.
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if repl, ok := foldExceptions[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits a name on whitespace and commas, lowercases each token and drops
// everything but letters and digits from it.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Alphanumeric(strings.ToLower(f)); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NameKey is the diacritic- and case-insensitive key of a name.
func NameKey(s string) string {
	return Truncate(Alphanumeric(strings.ToLower(FoldDiacritics(s))))
}

// ExactKey is the case-insensitive key of a name with diacritics kept.
func ExactKey(s string) string {
	return Truncate(Alphanumeric(strings.ToLower(s)))
}

// TokenKey folds one token produced by Tokenize.
func TokenKey(token string) string {
	return Alphanumeric(strings.ToLower(FoldDiacritics(token)))
}

// Truncate limits a normalized name to MaxMatchedNameLength characters.
func Truncate(s string) string {
	if len(s) <= MaxMatchedNameLength {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxMatchedNameLength {
		return s
	}
	return string(r[:MaxMatchedNameLength])
}
