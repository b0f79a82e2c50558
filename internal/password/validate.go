package password

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	javascriptRegex = regexp.MustCompile(`(?i)javascript:`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ValidName requires at least three characters after trimming.
func ValidName(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= 3
}

// Sanitize trims s and strips angle brackets and javascript: URLs.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	return javascriptRegex.ReplaceAllString(s, "")
}
