package intent

import (
	"regexp"
	"strings"
)

var (
	punctRE = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spaceRE = regexp.MustCompile(`\s+`)
)

// Normalize prepares recognizer text for matching: case-fold, strip
// punctuation, collapse whitespace. The recognizer auto-inserts commas and
// terminal periods, so punctuation carries no signal at match time — the
// splitter has already consumed it for segmentation.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = punctRE.ReplaceAllString(text, "")
	text = spaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
