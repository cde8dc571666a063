package summarize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// maxSummaryLen caps every summary the enricher emits.
	maxSummaryLen = 280
	// firstChunkLen bounds the extract when the readme has no blank line.
	firstChunkLen = 600
)

var (
	imageRef   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRef    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markupRune = regexp.MustCompile("[#>*_`-]")
	spaces     = regexp.MustCompile(`\s+`)
)

// HeuristicSummary extracts a deterministic summary from readme text: the
// first blank-line-delimited paragraph with markup stripped, falling back
// to the given description when nothing readable remains. The result is
// never longer than 280 characters.
func HeuristicSummary(readme, fallback string) string {
	text := strings.ReplaceAll(readme, "\r", "")

	firstPara, _, found := strings.Cut(text, "\n\n")
	if !found || firstPara == "" {
		firstPara = cutBytes(text, firstChunkLen)
	}

	clean := imageRef.ReplaceAllString(firstPara, "")
	clean = linkRef.ReplaceAllString(clean, "$1")
	clean = markupRune.ReplaceAllString(clean, " ")
	clean = spaces.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		clean = fallback
	}
	return Truncate(clean)
}

// Truncate caps a summary at 280 bytes, appending an ellipsis when cut.
func Truncate(s string) string {
	if len(s) <= maxSummaryLen {
		return s
	}
	return cutBytes(s, maxSummaryLen-3) + "..."
}

// cutBytes shortens s to at most n bytes without splitting a multibyte rune.
func cutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
