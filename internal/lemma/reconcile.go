package lemma

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder is replaced by the lemma value in the new-value template.
const Placeholder = "%LEMMA"

// Found maps each lemma to the source file it was last seen in.
type Found map[string]string

// Structure groups found lemmas by family. Keys inside each family are encoded
// and relative to the family. Lemmas without a parent and lemmas of ignored
// families are skipped.
func Structure(found Found, ignoreFamilies []string) map[string]Flat {
	trees := make(map[string]Tree)
	for _, key := range SortedKeys(found) {
		file := found[key]
		encoded := EncodeKey(key)
		family, _, ok := Family(encoded)
		if !ok {
			log.Warn().Str("lemma", key).Str("file", file).Msg("Lemma will not be included because it has no parent")
			continue
		}
		if lo.Contains(ignoreFamilies, family) {
			log.Debug().Str("family", family).Msg("Skip lang file")
			continue
		}
		root := Tree{}
		Set(root, encoded, file)
		tree, ok := trees[family]
		if !ok {
			tree = Tree{}
			trees[family] = tree
		}
		merge(tree, root[family].(Tree))
	}

	out := make(map[string]Flat, len(trees))
	for family, tree := range trees {
		out[family] = Dot(tree)
	}
	return out
}

// merge copies src into dst. Leaves overwrite existing groups and the other way
// round, matching Set.
func merge(dst, src Tree) {
	for k, v := range src {
		sub, isTree := v.(Tree)
		if !isTree {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(Tree)
		if !ok {
			existing = Tree{}
			dst[k] = existing
		}
		merge(existing, sub)
	}
}

// Rules drives Reconcile.
type Rules struct {
	// NeverObsolete lists key segments that mark dynamic lemmas.
	NeverObsolete []string
	// NewValue is the template for new values; Placeholder is replaced by the lemma.
	NewValue string
	// AskForValue disables the ManualAdd filtering of dynamic new lemmas and
	// lets Ask provide values.
	AskForValue bool
	// Ask returns the value for a new lemma. It may be nil.
	Ask func(key, suggestion string) string
}

// Plan is the outcome of reconciling one language file.
type Plan struct {
	New       []string
	Existing  []string
	Obsolete  []string
	Kept      []string
	ManualAdd []string
	// Dirty reports that the file content differs from the found lemmas.
	Dirty bool
	// HasNew reports lemmas missing from the file, including ManualAdd ones.
	HasNew bool
	Final  Tree
}

// Reconcile classifies the keys of one family against an existing language file.
// old holds the encoded keys of the file, found the encoded keys seen in code.
func Reconcile(old Flat, found Flat, rules Rules) *Plan {
	p := &Plan{Final: Tree{}}
	template := rules.NewValue
	if template == "" {
		template = Placeholder
	}

	for _, key := range SortedKeys(found) {
		if _, ok := old[key]; ok {
			continue
		}
		if !rules.AskForValue && IsNeverObsolete(key, rules.NeverObsolete) {
			p.ManualAdd = append(p.ManualAdd, key)
			p.HasNew = true
			continue
		}
		p.New = append(p.New, key)
	}

	if len(p.New) > 0 {
		p.Dirty = true
		p.HasNew = true
	}
	for _, key := range p.New {
		value := DecodeKey(key)
		if rules.AskForValue && rules.Ask != nil {
			value = rules.Ask(value, Suggestion(value, rules.NeverObsolete))
		}
		Set(p.Final, key, strings.ReplaceAll(template, Placeholder, value))
	}

	for _, key := range SortedKeys(old) {
		if _, ok := found[key]; ok {
			p.Existing = append(p.Existing, key)
			Set(p.Final, key, old[key])
			continue
		}
		if IsNeverObsolete(DecodeKey(key), rules.NeverObsolete) {
			p.Kept = append(p.Kept, key)
			Set(p.Final, key, strings.ReplaceAll(template, Placeholder, old[key]))
			continue
		}
		p.Obsolete = append(p.Obsolete, key)
	}

	if len(p.Obsolete) > 0 {
		p.Dirty = true
	}
	return p
}

// IsNeverObsolete reports whether key starts with, or contains, one of the
// dynamic segments.
func IsNeverObsolete(key string, segments []string) bool {
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		marker := seg + "."
		if strings.HasPrefix(key, marker) || strings.Contains(key, "."+marker) {
			return true
		}
	}
	return false
}

// Suggestion derives a human readable default value from a lemma key.
func Suggestion(key string, neverObsolete []string) string {
	if len(neverObsolete) > 0 {
		quoted := lo.Map(neverObsolete, func(s string, _ int) string {
			return regexp.QuoteMeta(s)
		})
		re := regexp.MustCompile(`(?i)^(` + strings.Join(quoted, "|") + `)\.`)
		key = re.ReplaceAllString(key, "")
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}
