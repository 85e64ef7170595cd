package intent

import (
	"regexp"
	"strings"

	"github.com/MrWong99/voxctl/pkg/types"
)

// boundaryRE matches a run of sentence and clause punctuation. The
// recognizer auto-inserts commas and terminal periods, so every run is a
// potential command boundary.
var boundaryRE = regexp.MustCompile(`[.!?,;]+`)

// Split carves one utterance transcript into ordered segments. Boundary
// punctuation is consumed, segments are trimmed, and empty segments are
// dropped, so "go down. go down." and "go down go down" both yield useful
// output (one two-segment result, one single segment).
//
// Splitting is idempotent: a segment re-split yields itself.
func Split(raw string) []types.Segment {
	parts := boundaryRE.Split(raw, -1)
	segs := make([]types.Segment, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segs = append(segs, types.Segment{Text: p, Index: len(segs)})
	}
	return segs
}
