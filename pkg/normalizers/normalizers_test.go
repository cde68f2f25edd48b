package normalizers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"formatted", "(555) 123-4567", "5551234567"},
		{"country prefix", "+1 555 123 4567", "5551234567"},
		{"dotted country prefix", "1.555.123.4567", "5551234567"},
		{"short", "911", "911"},
		{"international", "+44 20 7946 0958", "442079460958"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bill@gore.example", NormalizeEmail("  Bill@Gore.Example "))
	assert.Equal(t, "bill.gore", EmailLocalPart("Bill.Gore@example.com"))
	assert.Equal(t, "nobody", EmailLocalPart("nobody"))
}

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hélène Bjørn", "Helene Bjorn"},
		{"Łukasz Żółć", "Lukasz Zolc"},
		{"Straße", "Strasse"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldDiacritics(tt.input))
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "helenebjorn", NameKey("Hélène Bjørn"))
	assert.Equal(t, NameKey("helene bjorn"), NameKey("Hélène Bjørn"))
	assert.Equal(t, "obrien", NameKey("O'Brien"))
	assert.Equal(t, "hélènebjørn", ExactKey("Hélène Bjørn"))
	assert.Len(t, []rune(NameKey(strings.Repeat("abc", 20))), MaxMatchedNameLength)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"gore", "william"}, Tokenize("Gore, William"))
	assert.Equal(t, []string{"jean", "luc", "picard"}, Tokenize("  Jean  Luc\tPicard "))
	assert.Equal(t, []string{"obrien"}, Tokenize("O'Brien"))
	assert.Empty(t, Tokenize(" , "))
}

func TestCompareComplexity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"longer given name", "William Gore", "Bill Gore", 1},
		{"more tokens", "John Smith", "John", 1},
		{"fewer tokens", "Madonna", "Jo Do", -1},
		{"accents sort after plain", "Hélène", "Helene", 1},
		{"identical", "Ann Lee", "Ann Lee", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareComplexity(tt.a, tt.b)
			switch {
			case tt.want > 0:
				assert.Positive(t, got)
			case tt.want < 0:
				assert.Negative(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestNormalizeDetail(t *testing.T) {
	assert.Equal(t, "5551234567", NormalizeDetail(models.DetailKindPhone, "1-555-123-4567"))
	assert.Equal(t, "a@b.c", NormalizeDetail(models.DetailKindEmail, " A@B.c"))
	assert.Equal(t, "billy", NormalizeDetail(models.DetailKindNickname, "Billy!"))
	assert.Equal(t, "Acme", NormalizeDetail(models.DetailKindGroupMembership, " Acme "))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "helene", ApplyChain(" Hélène ", "trim", "fold", "lowercase"))
	assert.Equal(t, "x", Apply("x", "unknown"))
}
