package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

var extension = regexp.MustCompile(`\.[^.\s]{3,4}$`)

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Groups parses a group argument such as "messages.php, auth" into group
// names: whitespace is removed, the list is split on commas and a trailing
// file extension is dropped.
func Groups(arg string) []string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, arg)

	var groups []string
	for _, g := range strings.Split(compact, ",") {
		g = extension.ReplaceAllString(g, "")
		if g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
