// Package lemma implements the dotted-key algebra used to reconcile lemmas found
// in source code with the contents of language files.
package lemma

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Tree is a nested translation group. Values are either string leaves or
// nested Trees.
type Tree map[string]any

// Flat maps dotted keys to leaf values.
type Flat map[string]string

const encodedDot = "&#46;"

// keyDotPattern matches dots that end a sentence rather than separate key segments.
var keyDotPattern = regexp.MustCompile(`\.\s|\.\||\.$`)

// EncodeKey protects dots followed by whitespace, by a pipe, or at the end of the
// key so that Set keeps sentence-like lemmas as a single leaf.
func EncodeKey(key string) string {
	return keyDotPattern.ReplaceAllStringFunc(key, func(m string) string {
		return strings.Replace(m, ".", encodedDot, 1)
	})
}

// DecodeKey reverses EncodeKey.
func DecodeKey(key string) string {
	return strings.ReplaceAll(key, encodedDot, ".")
}

// Set assigns value at the dotted key, replacing any non-map value met on the
// way with a new map.
func Set(t Tree, key string, value string) {
	segments := strings.Split(key, ".")
	current := t
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(Tree)
		if !ok {
			next = Tree{}
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// Get returns the leaf stored at the dotted key.
func Get(t Tree, key string) (string, bool) {
	segments := strings.Split(key, ".")
	current := t
	for i, seg := range segments {
		v, ok := current[seg]
		if !ok {
			return "", false
		}
		if i == len(segments)-1 {
			s, ok := v.(string)
			return s, ok
		}
		if current, ok = v.(Tree); !ok {
			return "", false
		}
	}
	return "", false
}

// Dot flattens a tree into dotted keys. Empty nested groups produce no keys.
func Dot(t Tree) Flat {
	out := make(Flat)
	dot(t, "", out)
	return out
}

func dot(t Tree, prefix string, out Flat) {
	for k, v := range t {
		switch val := v.(type) {
		case Tree:
			dot(val, prefix+k+".", out)
		case string:
			out[prefix+k] = val
		}
	}
}

// Undot rebuilds a tree from dotted keys.
func Undot(f Flat) Tree {
	t := Tree{}
	for _, k := range SortedKeys(f) {
		Set(t, k, f[k])
	}
	return t
}

// SortedKeys returns the map keys in key order: integer keys first in numeric
// order, then the remaining keys lexically.
func SortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	SortKeys(keys)
	return keys
}

// SortKeys sorts keys in place using the SortedKeys order.
func SortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}

// Family returns the lemma's family (the text before the first dot) and the
// remainder. ok is false when the lemma has no parent.
func Family(key string) (family, rest string, ok bool) {
	idx := strings.Index(key, ".")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// EncodeFlat encodes every key of f.
func EncodeFlat(f Flat) Flat {
	out := make(Flat, len(f))
	for k, v := range f {
		out[EncodeKey(k)] = v
	}
	return out
}

// FromMap converts decoded JSON or YAML objects into a Tree. Non-string scalars
// are formatted with fmt semantics; nulls become empty strings.
func FromMap(m map[string]any) Tree {
	t := make(Tree, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			t[k] = FromMap(val)
		case Tree:
			t[k] = val
		case string:
			t[k] = val
		case nil:
			t[k] = ""
		default:
			t[k] = fmt.Sprint(val)
		}
	}
	return t
}
