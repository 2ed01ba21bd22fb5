package project

import "unicode/utf8"

// TruncateText cuts s to at most n bytes without splitting a UTF-8
// sequence.
func TruncateText(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
