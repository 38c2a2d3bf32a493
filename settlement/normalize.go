package settlement

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTag reduces a loosely typed tag ("Monthly_Wage", " 월급 ",
// "support-team") to lower-case letters and digits so it can be matched
// against the closed enumerations in this package.
func NormalizeTag(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName is the matching key for company, team and person names.
// Parenthetical parts ("(주)", "(株)", "(partner)") and all whitespace are
// removed and the result is NFC-normalized and lower-cased.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '(' || r == '（' || r == '[':
			depth++
		case r == ')' || r == '）' || r == ']':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsSpace(r):
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// sentinelIDs are placeholder ids written by upstream forms for "no value".
var sentinelIDs = map[string]bool{
	"":          true,
	"-":         true,
	"0":         true,
	"none":      true,
	"null":      true,
	"nil":       true,
	"undefined": true,
}

// isSentinelID reports whether id carries no reference.
func isSentinelID(id string) bool {
	return sentinelIDs[strings.ToLower(strings.TrimSpace(id))]
}
