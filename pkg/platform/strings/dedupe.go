// Package strings holds the small slice-of-string helpers the site config
// layer leans on.
package strings

import (
	"strings"
)

// DedupeAndTrim trims whitespace, drops empties, and removes duplicates
// while preserving first-seen order. Locale lists keep their casing, so
// "pt-BR" survives as written.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with lowercasing, for values compared
// case-insensitively (host names, provider keys).
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
