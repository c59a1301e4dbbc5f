// Package textutil holds small string helpers shared by the location table,
// the draft parser and the competitor analyzer.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slugify lowercases s and joins its ASCII alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// WordCount counts whitespace-separated tokens that contain a letter or digit.
func WordCount(s string) int {
	n := 0
	for _, field := range strings.Fields(s) {
		if strings.IndexFunc(field, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

// Truncate shortens s to at most limit runes, cutting at the last word
// boundary and appending "...". Whitespace runs are collapsed first.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	const ellipsis = "..."
	cut := limit - len(ellipsis)
	if cut <= 0 {
		return string(runes[:limit])
	}
	head := string(runes[:cut])
	if i := strings.LastIndexByte(head, ' '); i > 0 {
		head = head[:i]
	}
	return strings.TrimRight(head, " ,.;:-") + ellipsis
}

// TruncateBytes cuts s to at most limit bytes without splitting a UTF-8
// sequence.
func TruncateBytes(s string, limit int) string {
	if limit < 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Title converts a search query into English title case.
func Title(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}
