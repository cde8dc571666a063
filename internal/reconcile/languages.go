package reconcile

// knownLanguages are the programming-language names that may appear as tags
// on curated or remote records. Tag tokens matching one of these are always
// promoted to the record's language field.
var knownLanguages = map[string]struct{}{
	"JavaScript": {},
	"TypeScript": {},
	"Python":     {},
	"Java":       {},
	"C++":        {},
	"C#":         {},
	"Go":         {},
	"Rust":       {},
	"Ruby":       {},
	"PHP":        {},
	"Kotlin":     {},
	"Swift":      {},
}

// splitLanguageTag separates the first recognized language token from a tag
// list. The returned tags slice keeps definition order and is nil when no
// tags remain.
func splitLanguageTag(tags []string) (language string, rest []string) {
	for _, t := range tags {
		if _, ok := knownLanguages[t]; ok && language == "" {
			language = t
			continue
		}
		rest = append(rest, t)
	}
	return language, rest
}
