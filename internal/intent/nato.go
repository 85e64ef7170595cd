package intent

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// natoEntry is one codeword → letter mapping. Alias entries cover recognizer
// variants ("alfa", "juliett") and known mishearings.
type natoEntry struct {
	codeword string
	letter   byte
	isAlias  bool
}

// natoCodewords is the canonical ICAO table.
var natoCodewords = []natoEntry{
	{"alpha", 'a', false}, {"bravo", 'b', false}, {"charlie", 'c', false},
	{"delta", 'd', false}, {"echo", 'e', false}, {"foxtrot", 'f', false},
	{"golf", 'g', false}, {"hotel", 'h', false}, {"india", 'i', false},
	{"juliet", 'j', false}, {"kilo", 'k', false}, {"lima", 'l', false},
	{"mike", 'm', false}, {"november", 'n', false}, {"oscar", 'o', false},
	{"papa", 'p', false}, {"quebec", 'q', false}, {"romeo", 'r', false},
	{"sierra", 's', false}, {"tango", 't', false}, {"uniform", 'u', false},
	{"victor", 'v', false}, {"whiskey", 'w', false}, {"xray", 'x', false},
	{"yankee", 'y', false}, {"zulu", 'z', false},
}

// natoAliases covers the spellings and mishearings the recognizer actually
// produces for the canonical codewords.
var natoAliases = []natoEntry{
	{"alfa", 'a', true},
	{"juliett", 'j', true},
	{"julia", 'j', true},
	{"whisky", 'w', true},
	{"exray", 'x', true},
	{"x-ray", 'x', true},
	{"poppa", 'p', true},
	{"kebec", 'q', true},
	{"zoolu", 'z', true},
}

// capTriggers are the uppercase-prefix trigger words. "cap" is canonical;
// "tap" and "caps" are recognizer mishearings of it.
var capTriggers = map[string]bool{
	"cap":  true,
	"caps": true,
	"tap":  true,
}

const (
	// minRunLength is the contiguity requirement: a lone codeword inside
	// prose is ordinary dictation, two or more in a row is spelling.
	minRunLength = 2

	// defaultNATOFuzzy is the Jaro-Winkler floor for the phonetic assist.
	defaultNATOFuzzy = 0.86

	// natoAssistPenalty discounts run confidence per phonetic resolution.
	natoAssistPenalty = 0.9
)

// NATOOption configures a NATO table.
type NATOOption func(*NATO)

// WithNATOFuzzyThreshold sets the minimum Jaro-Winkler score for the
// phonetic assist to resolve an unknown token to a codeword. Default: 0.86.
func WithNATOFuzzyThreshold(threshold float64) NATOOption {
	return func(n *NATO) {
		n.fuzzyThreshold = threshold
	}
}

// WithoutNATOPhoneticAssist disables fuzzy codeword resolution entirely;
// only exact codewords and registered aliases resolve.
func WithoutNATOPhoneticAssist() NATOOption {
	return func(n *NATO) {
		n.assist = false
	}
}

// NATO is the spelling-disambiguation table: codewords, aliases, and a
// Double Metaphone + Jaro-Winkler assist for near-miss tokens. Read-only
// after construction and safe for concurrent use.
type NATO struct {
	byCodeword map[string]byte
	// metaphone code → letter, for the phonetic assist candidate filter.
	byMetaphone map[string][]natoEntry

	assist         bool
	fuzzyThreshold float64
}

// NewNATO builds the table from the canonical codewords plus aliases.
func NewNATO(opts ...NATOOption) *NATO {
	n := &NATO{
		byCodeword:     make(map[string]byte, len(natoCodewords)+len(natoAliases)),
		byMetaphone:    make(map[string][]natoEntry),
		assist:         true,
		fuzzyThreshold: defaultNATOFuzzy,
	}
	for _, e := range natoCodewords {
		n.add(e)
	}
	for _, e := range natoAliases {
		n.add(e)
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *NATO) add(e natoEntry) {
	n.byCodeword[e.codeword] = e.letter
	p, s := matchr.DoubleMetaphone(e.codeword)
	if p != "" {
		n.byMetaphone[p] = append(n.byMetaphone[p], e)
	}
	if s != "" && s != p {
		n.byMetaphone[s] = append(n.byMetaphone[s], e)
	}
}

// Letter resolves a single token to its letter through the codeword and
// alias tables only. No phonetic assist.
func (n *NATO) Letter(token string) (byte, bool) {
	l, ok := n.byCodeword[strings.ToLower(token)]
	return l, ok
}

// resolve maps one token to a letter. exact is false when the phonetic
// assist produced the resolution.
func (n *NATO) resolve(token string) (letter byte, exact, ok bool) {
	if l, found := n.byCodeword[token]; found {
		return l, true, true
	}
	if !n.assist || len(token) < 3 {
		return 0, false, false
	}

	// Phonetic candidates share a Double Metaphone code with a codeword;
	// Jaro-Winkler on the raw strings ranks them.
	p, s := matchr.DoubleMetaphone(token)
	var best natoEntry
	bestScore := 0.0
	for _, code := range []string{p, s} {
		if code == "" {
			continue
		}
		for _, cand := range n.byMetaphone[code] {
			if score := matchr.JaroWinkler(token, cand.codeword, false); score > bestScore {
				best, bestScore = cand, score
			}
		}
	}
	if bestScore >= n.fuzzyThreshold {
		return best.letter, false, true
	}
	return 0, false, false
}

// CollapseResult is the outcome of scanning a segment for codeword runs.
type CollapseResult struct {
	// Text is the segment with every qualifying run replaced by its
	// spelled string. Tokens outside runs are untouched.
	Text string

	// Runs is the number of collapsed runs (≥1 on a hit).
	Runs int

	// WholeSegment is true when the entire segment was consumed by runs
	// (plus optional uppercase triggers).
	WholeSegment bool

	// Confidence reflects how cleanly the runs resolved: 1.0 for a
	// whole-segment run of exact codewords, discounted for partial
	// segments and for each phonetically-assisted token.
	Confidence float64
}

// Collapse scans normalized segment text for contiguous runs of ≥2 codeword
// tokens and collapses each run into its spelled string. An uppercase
// trigger ("cap", or its mishearing "tap") immediately before a run renders
// that run's letters uppercase.
//
// A single isolated codeword never collapses — the contiguity requirement is
// what separates spelling from prose that happens to contain "hotel".
func (n *NATO) Collapse(text string) (CollapseResult, bool) {
	tokens := strings.Fields(text)
	if len(tokens) < minRunLength {
		return CollapseResult{}, false
	}

	type resolved struct {
		letter byte
		exact  bool
		ok     bool
	}
	res := make([]resolved, len(tokens))
	for i, tok := range tokens {
		l, exact, ok := n.resolve(tok)
		res[i] = resolved{letter: l, exact: exact, ok: ok}
	}

	var out []string
	runs := 0
	assisted := 0
	consumed := 0

	i := 0
	for i < len(tokens) {
		// Find the run starting at i, allowing for an uppercase trigger.
		start := i
		upper := false
		if capTriggers[tokens[i]] && i+1 < len(tokens) {
			start = i + 1
			upper = true
		}
		end := start
		for end < len(tokens) && res[end].ok {
			end++
		}

		if end-start >= minRunLength {
			var b strings.Builder
			for j := start; j < end; j++ {
				b.WriteByte(res[j].letter)
				if !res[j].exact {
					assisted++
				}
			}
			spelled := b.String()
			if upper {
				spelled = strings.ToUpper(spelled)
			}
			out = append(out, spelled)
			runs++
			consumed += end - i
			i = end
			continue
		}

		out = append(out, tokens[i])
		i++
	}

	if runs == 0 {
		return CollapseResult{}, false
	}

	r := CollapseResult{
		Text:         strings.Join(out, " "),
		Runs:         runs,
		WholeSegment: consumed == len(tokens),
	}
	r.Confidence = 1.0
	if !r.WholeSegment {
		r.Confidence = 0.9
	}
	for k := 0; k < assisted; k++ {
		r.Confidence *= natoAssistPenalty
	}
	return r, true
}
