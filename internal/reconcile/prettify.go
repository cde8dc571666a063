package reconcile

import "strings"

// acronymFixes corrects title-cased words that are really acronyms.
var acronymFixes = map[string]string{
	"Ai":  "AI",
	"Llm": "LLM",
	"Tom": "TOM",
}

// PrettifyRepoName turns a repository name into a display title: hyphens
// and underscores become spaces, each word is capitalized, and a small set
// of acronyms keeps its casing.
func PrettifyRepoName(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		word := strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
		if fixed, ok := acronymFixes[word]; ok {
			word = fixed
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}
