// Package strings provides string list helpers shared by config parsing and
// key handling.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empties and repeats, keeping
// first-seen order.
func DedupeAndTrim(values []string) []string {
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
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// SplitList splits a comma separated value into its distinct, trimmed items.
// An empty or blank value yields nil.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(v, ","))
}
