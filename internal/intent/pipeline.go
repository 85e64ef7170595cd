package intent

import (
	"log/slog"
	"strings"

	"github.com/MrWong99/voxctl/internal/format"
	"github.com/MrWong99/voxctl/pkg/types"
)

// Confidence constants for the non-NATO stages. NATO confidence comes from
// [CollapseResult].
const (
	confidenceExact   = 1.0
	confidenceParam   = 1.0
	confidenceAliased = 0.95
	confidenceFormat  = 1.0
	confidenceDictate = 1.0

	// defaultThreshold is the ambiguity floor: a match below it is flagged
	// for arbitration instead of being dispatched directly.
	defaultThreshold = 0.9
)

// Result is the outcome of matching one segment. Exactly one of Action and
// Text is set: commands produce an Action, the formatter/NATO/dictation
// stages produce Text.
type Result struct {
	Stage      Stage
	Command    *Command
	Action     *types.Action
	Text       *types.FormattedText
	Confidence float64

	// Ambiguous marks a result the engine should hand to the arbiter
	// because the confidence fell below the threshold.
	Ambiguous bool

	// Raw and Normalized carry the segment through to logging, telemetry,
	// and the arbiter prompt.
	Raw        string
	Normalized string
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithThreshold sets the ambiguity confidence floor. Default: 0.9.
func WithThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// WithFormatTable replaces the default formatter table.
func WithFormatTable(tbl *format.Table) MatcherOption {
	return func(m *Matcher) {
		m.formats = tbl
	}
}

// WithNATO replaces the default spelling table.
func WithNATO(n *NATO) MatcherOption {
	return func(m *Matcher) {
		m.nato = n
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		m.log = log
	}
}

// Matcher runs a segment through the precedence chain: exact lookup,
// parameterized patterns, formatter prefixes, codeword spelling, and
// finally the dictation fallback. The chain never returns no-result; an
// unrecognized segment is dictation, not an error.
//
// A Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	registry  *Registry
	formats   *format.Table
	nato      *NATO
	threshold float64
	log       *slog.Logger
}

// NewMatcher builds a Matcher over the given registry.
func NewMatcher(reg *Registry, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		registry:  reg,
		formats:   format.Default(),
		nato:      NewNATO(),
		threshold: defaultThreshold,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match resolves one segment. raw is the segment text as the recognizer
// produced it; casing and inner punctuation survive into dictation output
// and PreserveCase slots, while matching itself runs on the normalized
// form.
func (m *Matcher) Match(raw string) Result {
	norm := Normalize(raw)
	res := Result{Raw: raw, Normalized: norm}

	if norm == "" {
		res.Stage = StageDictation
		res.Text = &types.FormattedText{Content: strings.TrimSpace(raw)}
		res.Confidence = confidenceDictate
		return res
	}

	// Stage 1: exact.
	if cmd, ok := m.registry.Exact(norm); ok {
		act := cmd.Action(nil)
		res.Stage = StageExact
		res.Command = cmd
		res.Action = &act
		res.Confidence = confidenceExact
		return res
	}

	// Stage 2: parameterized.
	tokens := strings.Fields(norm)
	if pm, tied, ok := m.registry.MatchParameterized(tokens); ok {
		if tied {
			// Tie-break policy already picked the first-registered
			// candidate; the discard is logged, not arbitrated.
			m.log.Debug("parameterized tie resolved first-registered",
				slog.String("segment", norm),
				slog.String("command", pm.cmd.Name))
		}
		args := pm.args
		if pm.cmd.preserveCase && pm.cmd.rawTextRE != nil {
			if sub := pm.cmd.rawTextRE.FindStringSubmatch(raw); sub != nil {
				args["text"] = sub[1]
			}
		}
		act := pm.cmd.Action(args)
		res.Stage = StageParameterized
		res.Command = pm.cmd
		res.Action = &act
		res.Confidence = confidenceParam
		if pm.aliased {
			res.Confidence = confidenceAliased
		}
		res.Ambiguous = res.Confidence < m.threshold
		return res
	}

	// Stage 3: formatter prefix.
	if formatted, name, ok := m.formats.TryPrefix(norm); ok {
		res.Stage = StageFormatter
		res.Text = &types.FormattedText{Content: formatted, Hint: name}
		res.Confidence = confidenceFormat
		return res
	}

	// Stage 4: codeword spelling.
	if collapsed, ok := m.nato.Collapse(norm); ok {
		res.Stage = StageNATO
		res.Text = &types.FormattedText{Content: collapsed.Text, Hint: "spelled"}
		res.Confidence = collapsed.Confidence
		res.Ambiguous = res.Confidence < m.threshold
		return res
	}

	// Stage 5: dictation fallback. Raw text keeps the speaker's casing.
	res.Stage = StageDictation
	res.Text = &types.FormattedText{Content: strings.TrimSpace(raw)}
	res.Confidence = confidenceDictate
	return res
}

// Threshold reports the configured ambiguity floor, for startup logging.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}
