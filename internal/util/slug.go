package util

import (
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const slugSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Filler words that add nothing to a slug derived from a recipient
// description like "my mom who loves gardening".
var slugStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "in": true, "is": true,
	"my": true, "of": true, "our": true, "the": true, "their": true,
	"that": true, "this": true, "to": true, "who": true, "with": true,
	"really": true, "very": true,
}

var nonSlugCharRegex = regexp.MustCompile(`[^a-z0-9\s-]`)

// Slugify derives a deterministic URL-safe slug from free text: lowercased,
// punctuation stripped, stopwords removed, hyphen-joined, truncated at a word
// boundary to maxLen. Returns "" for text with no usable words.
func Slugify(text string, maxLen int) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	lowered = nonSlugCharRegex.ReplaceAllString(lowered, "")

	var words []string
	for _, w := range strings.Fields(lowered) {
		w = strings.Trim(w, "-")
		if w == "" || slugStopwords[w] {
			continue
		}
		words = append(words, w)
	}

	slug := ""
	for _, w := range words {
		candidate := w
		if slug != "" {
			candidate = slug + "-" + w
		}
		if len(candidate) > maxLen {
			break
		}
		slug = candidate
	}
	return slug
}

// RandomSlugSuffix returns a short lowercase alphanumeric suffix for slug
// disambiguation when numeric suffixes are exhausted.
func RandomSlugSuffix(length int) (string, error) {
	return gonanoid.Generate(slugSuffixAlphabet, length)
}
