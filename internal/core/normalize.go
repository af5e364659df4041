package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks and recomposes, so
// "Vívó" and "vivo" normalize to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey canonicalizes a label for matching: trim, lowercase, strip
// diacritics. Used for counterparty keys, search queries and field-name
// resolution against heterogeneous store schemas.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}
