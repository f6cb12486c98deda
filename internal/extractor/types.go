package extractor

// ExtractedLemma represents a translation key found in a source file.
type ExtractedLemma struct {
	// Key is the unescaped lemma.
	Key string
	// File is the source file path.
	File string
	// Line is the 1-based line number of the call.
	Line int
	// Method is the configured translation method whose pattern matched.
	Method string
}

// ExtractResult holds extraction output for a single file.
type ExtractResult struct {
	// FilePath is the path of the scanned file.
	FilePath string
	// Lemmas are the lemmas in order of appearance per method.
	Lemmas []ExtractedLemma
	// Skipped counts literals discarded as dynamic, namespaced or not a single string.
	Skipped int
}

// Keys returns the distinct lemma keys of the result.
func (r *ExtractResult) Keys() []string {
	seen := make(map[string]struct{}, len(r.Lemmas))
	var keys []string
	for _, l := range r.Lemmas {
		if _, ok := seen[l.Key]; ok {
			continue
		}
		seen[l.Key] = struct{}{}
		keys = append(keys, l.Key)
	}
	return keys
}
