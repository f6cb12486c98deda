package langfile

import (
	"strconv"
	"strings"

	"localization-helpers/internal/lemma"
	"localization-helpers/internal/phpstr"
)

// Dump renders a tree as a PHP language file. Keys are sorted at every level and
// decoded. With shorthand set, arrays use the [] syntax; otherwise they are
// written the way var_export writes them.
func Dump(tree lemma.Tree, shorthand bool) []byte {
	var b strings.Builder
	b.WriteString("<?php\n\nreturn ")
	writeArray(&b, tree, 0, shorthand)
	b.WriteString(";\n")
	return []byte(b.String())
}

func writeArray(b *strings.Builder, tree lemma.Tree, depth int, shorthand bool) {
	open, closer, indent := "[", "]", "    "
	if !shorthand {
		open, closer, indent = "array (", ")", "  "
	}
	pad := strings.Repeat(indent, depth)

	b.WriteString(open)
	b.WriteByte('\n')
	for _, key := range lemma.SortedKeys(tree) {
		b.WriteString(pad)
		b.WriteString(indent)
		b.WriteString(renderKey(lemma.DecodeKey(key)))
		switch v := tree[key].(type) {
		case lemma.Tree:
			if shorthand {
				b.WriteString(" => ")
			} else {
				b.WriteString(" =>\n")
				b.WriteString(pad)
				b.WriteString(indent)
			}
			writeArray(b, v, depth+1, shorthand)
		case string:
			b.WriteString(" => ")
			b.WriteString(phpstr.Quote(v))
		}
		b.WriteString(",\n")
	}
	b.WriteString(pad)
	b.WriteString(closer)
}

// renderKey leaves canonical integer keys unquoted, as PHP stores them as ints.
func renderKey(key string) string {
	if n, err := strconv.Atoi(key); err == nil && strconv.Itoa(n) == key {
		return key
	}
	return phpstr.Quote(key)
}
