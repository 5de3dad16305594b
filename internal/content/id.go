package content

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BlokID derives a stable HTML element id for a block: the slugified title
// when one exists, otherwise a component-uid pair.
func BlokID(b Blok) string {
	if b.Title != "" {
		if id := SlugifyID(b.Title); id != "" {
			return id
		}
	}
	return fmt.Sprintf("%s-%s", b.Component, b.UID)
}

// SlugifyID turns arbitrary text into an anchor-safe slug: diacritics folded,
// lowercased, whitespace collapsed to single hyphens, everything outside
// [a-z0-9-] dropped, leading/trailing/repeated hyphens trimmed.
func SlugifyID(s string) string {
	folded := foldDiacritics(s)
	lowered := strings.ToLower(folded)

	var sb strings.Builder
	lastHyphen := false
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
				lastHyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// foldDiacritics decomposes and drops combining marks: "Über" becomes "Uber".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
