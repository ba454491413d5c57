package internal

import (
	"strings"
	"unicode"
)

// Version is the kumajala release version.
const Version = "0.1.0"

// SanitizeFilename creates a safe filename from a string. Letters of any
// script are kept, so "mooré" stays "mooré".
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
