package retrieval

import (
	"strings"

	"github.com/dlclark/regexp2/v2"
)

// trailingWord matches the run of non-whitespace characters abutting the end
// of a string, used to back a truncation point off a mid-word cut onto the
// preceding whitespace boundary.
var trailingWord = regexp2.MustCompile(`\S+$`, 0)

// excerpt trims text to at most maxChars, preferring a whitespace boundary
// over a mid-word cut so excerpts read as whole words (§4.8's deterministic,
// whitespace-aware excerpting).
func excerpt(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]

	if m, err := trailingWord.FindStringMatch(cut); err == nil && m != nil {
		if m.Index > 0 {
			cut = cut[:m.Index]
		} else {
			// the whole truncated slice is one long word; fall back to the
			// hard cut rather than emitting an empty excerpt.
			return strings.TrimSpace(text[:maxChars])
		}
	}

	return strings.TrimSpace(cut)
}
