// Package strings holds helpers for string lists read from definition files.
package strings

import "strings"

// Canonicalize trims each value, applies fold, and drops empty results and
// repeats. The first occurrence keeps its position. A nil fold leaves case
// untouched.
func Canonicalize(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
