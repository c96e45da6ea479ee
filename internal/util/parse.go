package util

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var priceRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice extracts the first numeric amount from a marketplace price
// string like "CA$ 1,299.99" or "$24.95 - $39.95". Returns nil when no
// amount is present.
func ParsePrice(s string) *float64 {
	match := priceRegex.FindString(s)
	if match == "" {
		return nil
	}
	match = strings.ReplaceAll(match, ",", "")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// NormalizeTitle folds a product title for identity comparison: lowercased,
// punctuation stripped, whitespace collapsed to single spaces.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
