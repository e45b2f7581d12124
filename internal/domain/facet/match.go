package facet

import (
	"strconv"
	"strings"
)

// Matches reports whether the field holds value. Filter values always arrive as strings while
// numeric facets (years) are stored as numbers, so three rules apply in order:
//  1. exact match against a string scalar;
//  2. integer-parse match against a numeric scalar;
//  3. float-parse match against a numeric scalar.
func (f Field) Matches(value string) bool {
	for _, s := range f.values {
		if ScalarMatches(s, value) {
			return true
		}
	}
	return false
}

// ScalarMatches applies the match rules of Field.Matches to a single scalar.
func ScalarMatches(s Scalar, value string) bool {
	if !s.numeric {
		return s.str == value
	}
	trimmed := strings.TrimSpace(value)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil && float64(i) == s.num {
		return true
	}
	if fl, err := strconv.ParseFloat(trimmed, 64); err == nil && fl == s.num {
		return true
	}
	return false
}

// CanonicalKey maps a filter value onto the bucket key it selects: numeric strings are
// rewritten to the canonical numeric key ("2022.0" -> "2022"); other values are returned unchanged.
func CanonicalKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if fl, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return strconv.FormatFloat(fl, 'f', -1, 64)
	}
	return value
}
