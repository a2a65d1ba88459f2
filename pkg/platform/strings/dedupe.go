// Package strings holds list normalization shared by request parsing and
// configuration.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops blanks and repeats, and keeps the
// first-seen order.
//
//	DedupeAndTrim([]string{"  fragile ", "cold", "fragile", ""}) // ["fragile", "cold"]
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folding. Use it for values
// compared case-insensitively, such as host patterns.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
