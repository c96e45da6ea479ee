package util

import (
	"net/url"
	"regexp"
	"strings"
)

// Marketplace CDNs encode resize/crop transformations in the image path.
// Stripping them yields the canonical full-size asset.
var (
	// Etsy: .../il_340x270.123456789_abcd.jpg -> il_fullxfull variant.
	etsyVariantRegex = regexp.MustCompile(`il_\d+x\d+\.`)

	// Amazon: /images/I/71abcDEF._AC_UL320_.jpg -> /images/I/71abcDEF.jpg
	amazonModifierRegex = regexp.MustCompile(`(/images/I/[^./]+)\._[^/]*_\.([a-zA-Z]+)$`)
)

// CleanImageURL strips marketplace-specific transformation suffixes from an
// image URL. It is total: on any parse failure or unrecognized source the
// original string is returned unchanged, and it never panics.
func CleanImageURL(raw string, source string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	switch source {
	case "etsy":
		if etsyVariantRegex.MatchString(parsed.Path) {
			parsed.Path = etsyVariantRegex.ReplaceAllString(parsed.Path, "il_fullxfull.")
			parsed.RawPath = ""
			return parsed.String()
		}
		return raw
	case "amazon":
		if amazonModifierRegex.MatchString(parsed.Path) {
			parsed.Path = amazonModifierRegex.ReplaceAllString(parsed.Path, "$1.$2")
			parsed.RawPath = ""
			return parsed.String()
		}
		return raw
	default:
		return raw
	}
}
