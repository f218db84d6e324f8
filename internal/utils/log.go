package utils

import "strings"

// TruncateForLog renders s as a single-line preview of at most limit characters.
// Whitespace runs, newlines included, collapse to one space; a cut is marked with "...".
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
