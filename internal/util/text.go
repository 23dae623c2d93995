package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`[ \t\x{00A0}]+`)

// NormalizeSpaces collapses runs of blanks on one line. Newlines are kept.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// ZeroPad pads numeric strings shorter than width with leading zeros.
func ZeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
