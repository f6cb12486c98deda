// Package interpolation shields translation placeholders from machine
// translation.
package interpolation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mapping stores the original placeholder and its safe replacement.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

type span struct {
	start, end int
}

// patterns detect placeholders in translation strings.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`:[a-zA-Z_][a-zA-Z0-9_]*`),             // :name, :Name, :NAME
	regexp.MustCompile(`\{[0-9]+\}`),                           // {0}, {1}
	regexp.MustCompile(`\[[0-9]+,\s*(?:[0-9]+|\*)\]`),          // [2,*] plural ranges
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`), // %d, %s, %2d
	regexp.MustCompile(`%%`),                                   // escaped percent
	regexp.MustCompile(`<[^>]+>`),                              // inline HTML tags
}

// Protect replaces every placeholder with a {{var_N}} token and returns the
// mapping needed to restore them.
func Protect(text string) (string, []Mapping) {
	var spans []span
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1]})
		}
	}
	if len(spans) == 0 {
		return text, nil
	}

	// Earliest first; on equal starts the longer match wins.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var b strings.Builder
	var mappings []Mapping
	last := 0
	for _, s := range spans {
		if s.start < last {
			continue
		}
		idx := len(mappings) + 1
		m := Mapping{
			Original:    text[s.start:s.end],
			Placeholder: fmt.Sprintf("{{var_%d}}", idx),
			Index:       idx,
		}
		mappings = append(mappings, m)
		b.WriteString(text[last:s.start])
		b.WriteString(m.Placeholder)
		last = s.end
	}
	b.WriteString(text[last:])

	return b.String(), mappings
}

// Restore puts the original placeholders back.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}

// Missing lists the placeholders that did not survive translation.
func Missing(translated string, mappings []Mapping) []string {
	var out []string
	for _, m := range mappings {
		if !strings.Contains(translated, m.Placeholder) {
			out = append(out, m.Original)
		}
	}
	return out
}
