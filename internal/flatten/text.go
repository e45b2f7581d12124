package flatten

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = regexp.MustCompile("[.,/#!$%^&*;:{}=\\-_`~()]")

// combining diacritical marks block
var isDiacritic = runes.Predicate(func(r rune) bool { return r >= 0x0300 && r <= 0x036F })

// Fold decomposes s and drops combining diacritical marks. Case is preserved.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(isDiacritic))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize strips punctuation, splits on whitespace and folds every token.
func Tokenize(s string) []string {
	fields := strings.Fields(punctuation.ReplaceAllString(s, ""))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := Fold(f); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
