package builder

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the maximum length of a sanitized path segment.
const MaxNameLength = 100

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// unsafeChars are stripped from names before they become path segments.
const unsafeChars = `<>:"/\|?*`

// SanitizeFileName turns an arbitrary name into a safe, deterministic
// path segment. The algorithm is fixed: strip unsafe characters, collapse
// whitespace runs to a single underscore, collapse underscore runs, trim
// leading and trailing underscores, truncate to MaxNameLength, and
// substitute "unnamed" for an empty result. Archive layouts depend on
// this being bit-reproducible.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if !strings.ContainsRune(unsafeChars, r) {
			b.WriteRune(r)
		}
	}
	s := whitespaceRun.ReplaceAllString(b.String(), "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > MaxNameLength {
		// Back off to a rune boundary so a multi-byte character is never
		// split into invalid UTF-8.
		cut := MaxNameLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if s == "" {
		return "unnamed"
	}
	return s
}
