package sanitize

import (
	"regexp"
	"strings"
)

// MaxLen is the hard cap applied to any sanitized text field.
const MaxLen = 1000

var (
	reJSScheme  = regexp.MustCompile(`(?i)javascript:`)
	reEventAttr = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// Clean trims whitespace, strips angle brackets, javascript: schemes and
// inline event-handler substrings, and truncates to MaxLen runes. It is
// idempotent: cleaning already-clean text returns it unchanged.
//
// This runs after validation and before persistence as a defense-in-depth
// layer; output encoding at render time remains the authoritative defense.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	// Stripping can splice surrounding text into a fresh signature
	// ("javasjavascript:cript:"), so repeat until a fixed point.
	for {
		next := reJSScheme.ReplaceAllString(s, "")
		next = reEventAttr.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > MaxLen {
		s = string(runes[:MaxLen])
	}
	return strings.TrimSpace(s)
}
