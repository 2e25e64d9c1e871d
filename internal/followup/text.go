package followup

import "unicode/utf8"

// Budgets and question lengths are measured in characters (code points), not
// bytes, so slicing never splits a multi-byte rune.

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

// firstChars returns the leading n characters of s.
func firstChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// lastChars returns the trailing n characters of s.
func lastChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := charLen(s)
	if total <= n {
		return s
	}
	skip := total - n
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return ""
}
