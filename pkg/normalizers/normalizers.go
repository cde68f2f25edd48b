// Package normalizers provides the string normalization used for name lookup and detail matching.
package normalizers

import (
	"strings"
	"unicode"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

// detailNormalizers names the normalizer applied to each detail kind before it is stored.
var detailNormalizers = map[models.DetailKind]string{
	models.DetailKindPhone:        "nphone",
	models.DetailKindEmail:        "nemail",
	models.DetailKindNickname:     "nname",
	models.DetailKindOrganization: "trim",
}

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("nname", NameKey)
	Register("nexact", ExactKey)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("fold", FoldDiacritics)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// NormalizeDetail returns the stored comparison form of a detail value.
func NormalizeDetail(kind models.DetailKind, value string) string {
	name, ok := detailNormalizers[kind]
	if !ok {
		return strings.TrimSpace(value)
	}
	return Apply(value, name)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NormalizePhone keeps the digits of a phone number and drops a leading "1" country prefix
// from eleven-digit numbers.
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailLocalPart returns the part of an address before the last "@".
func EmailLocalPart(s string) string {
	s = NormalizeEmail(s)
	if i := strings.LastIndex(s, "@"); i >= 0 {
		return s[:i]
	}
	return s
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
