package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackStopCode is the sentinel used when neither an explicit code nor a
// usable entity name is present.
const FallbackStopCode = "SIN_ENTIDAD"

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ResolveStopCode derives the canonical stop code from a raw code or, when
// the code is blank, from a free-text entity name. It never fails.
func ResolveStopCode(rawCode, fallbackName string) string {
	if code := strings.TrimSpace(rawCode); code != "" {
		return strings.ToUpper(code)
	}

	slug := stripDiacritics(fallbackName)
	slug = nonAlphanumeric.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	slug = strings.ToUpper(slug)
	if slug == "" {
		return FallbackStopCode
	}
	return slug
}
