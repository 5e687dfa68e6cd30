// Package strings provides string list helpers shared by the corpus loaders.
package strings

import (
	"strings"
)

// DedupeBy trims each value, drops empties and keeps the first value for
// every distinct key. Order is preserved.
func DedupeBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// DedupeAndTrim removes exact duplicates and blank values.
//
//	DedupeAndTrim([]string{"  Acme ", "Acme", ""}) // []string{"Acme"}
func DedupeAndTrim(values []string) []string {
	return DedupeBy(values, func(s string) string { return s })
}

// DedupeFold removes case-insensitive duplicates, keeping the first spelling.
//
//	DedupeFold([]string{"Acme Ltd", "ACME LTD"}) // []string{"Acme Ltd"}
func DedupeFold(values []string) []string {
	return DedupeBy(values, strings.ToLower)
}
