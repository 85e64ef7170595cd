package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/voxctl/pkg/types"
)

// Stage identifies which precedence stage produced (or defines) a match.
type Stage string

const (
	StageExact         Stage = "exact"
	StageParameterized Stage = "parameterized"
	StageFormatter     Stage = "formatter"
	StageNATO          Stage = "nato"
	StageDictation     Stage = "dictation"
)

// ErrMalformedPattern is the load-time registry validation failure. It is
// the only fatal condition in the whole pipeline: a registry that fails
// validation is rejected before any utterance is processed.
var ErrMalformedPattern = errors.New("intent: malformed pattern")

// slotKind enumerates the typed slot grammars a parameterized pattern may use.
type slotKind string

const (
	slotNumber    slotKind = "number"
	slotDirection slotKind = "direction"
	slotText      slotKind = "text"
)

var directions = map[string]bool{
	"up": true, "down": true, "left": true, "right": true,
}

// Definition declares one command as written in code or YAML config.
// The stage is derived from the pattern: a pattern containing <slots> is
// parameterized, anything else is exact.
type Definition struct {
	// Name identifies the command in logs, telemetry, and macro payloads.
	Name string `yaml:"name"`

	// Pattern is the spoken form, normalized. Parameterized patterns embed
	// typed slots: "go to line <number>", "go <number> <direction>",
	// "type <text>". A <text> slot must be the final token.
	Pattern string `yaml:"pattern"`

	// Kind and Payload form the action template dispatched on a hit.
	Kind    types.ActionKind `yaml:"kind"`
	Payload string           `yaml:"payload"`

	// PreserveCase re-extracts a <text> slot from the raw (unnormalized)
	// segment so "type MyStruct" keeps its casing.
	PreserveCase bool `yaml:"preserve_case"`
}

// Command is a validated, immutable registry entry. Identity is the
// registration order, used for ambiguity tie-breaks.
type Command struct {
	Name    string
	Pattern string
	Stage   Stage
	Kind    types.ActionKind
	Payload string

	order        int
	preserveCase bool

	// parameterized-only compiled form
	tokens     []patternToken
	fixedCount int
	rawTextRE  *regexp.Regexp
}

// patternToken is one element of a compiled parameterized pattern.
type patternToken struct {
	literal string
	slot    slotKind // empty for literals
	name    string   // capture name for slots
}

// Action instantiates the command's action template with captured slot
// values. The <number> slot value is normalized to digits.
func (c *Command) Action(args map[string]string) types.Action {
	return types.Action{
		Kind:    c.Kind,
		Name:    c.Name,
		Payload: c.Payload,
		Args:    args,
	}
}

var slotRE = regexp.MustCompile(`^<([a-z]+)(?::([a-z_]+))?>$`)

// compile parses a parameterized pattern into tokens. Slot syntax is
// <kind> or <kind:name>; the capture name defaults to the kind.
func compile(def Definition, order int) (*Command, error) {
	cmd := &Command{
		Name:         def.Name,
		Pattern:      def.Pattern,
		Kind:         def.Kind,
		Payload:      def.Payload,
		order:        order,
		preserveCase: def.PreserveCase,
	}

	fields := strings.Fields(def.Pattern)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: command %q has an empty pattern", ErrMalformedPattern, def.Name)
	}

	hasSlot := false
	for i, f := range fields {
		m := slotRE.FindStringSubmatch(f)
		if m == nil {
			if strings.ContainsAny(f, "<>") {
				return nil, fmt.Errorf("%w: command %q: bad slot token %q", ErrMalformedPattern, def.Name, f)
			}
			cmd.tokens = append(cmd.tokens, patternToken{literal: f})
			cmd.fixedCount++
			continue
		}
		hasSlot = true
		kind := slotKind(m[1])
		name := m[2]
		if name == "" {
			name = m[1]
		}
		switch kind {
		case slotNumber, slotDirection:
		case slotText:
			if i != len(fields)-1 {
				return nil, fmt.Errorf("%w: command %q: <text> slot must be final", ErrMalformedPattern, def.Name)
			}
		default:
			return nil, fmt.Errorf("%w: command %q: unknown slot grammar %q", ErrMalformedPattern, def.Name, m[1])
		}
		cmd.tokens = append(cmd.tokens, patternToken{slot: kind, name: name})
	}

	if !hasSlot {
		cmd.Stage = StageExact
		cmd.Pattern = Normalize(def.Pattern)
		return cmd, nil
	}

	cmd.Stage = StageParameterized
	if cmd.preserveCase {
		// Raw-case re-extraction needs the fixed prefix as a regex.
		var prefix []string
		for _, t := range cmd.tokens {
			if t.slot != "" {
				break
			}
			prefix = append(prefix, regexp.QuoteMeta(t.literal))
		}
		cmd.rawTextRE = regexp.MustCompile(`(?i)^\s*` + strings.Join(prefix, `\s+`) + `\s+(.+?)\s*$`)
	}
	return cmd, nil
}

// paramMatch is a successful parameterized match before tie-breaking.
type paramMatch struct {
	cmd     *Command
	args    map[string]string
	aliased bool
}

// match attempts to consume all of tokens with the pattern. Number slots
// greedily try the longest parseable region first.
func (c *Command) match(tokens []string) (*paramMatch, bool) {
	args := make(map[string]string)
	aliasedSlots := make(map[string]bool)

	var walk func(pi, ti int) bool
	walk = func(pi, ti int) bool {
		if pi == len(c.tokens) {
			return ti == len(tokens)
		}
		pt := c.tokens[pi]
		switch {
		case pt.slot == "":
			if ti < len(tokens) && tokens[ti] == pt.literal {
				return walk(pi+1, ti+1)
			}
			return false
		case pt.slot == slotText:
			if ti >= len(tokens) {
				return false
			}
			args[pt.name] = strings.Join(tokens[ti:], " ")
			return true
		case pt.slot == slotDirection:
			if ti < len(tokens) && directions[tokens[ti]] {
				args[pt.name] = tokens[ti]
				return walk(pi+1, ti+1)
			}
			return false
		case pt.slot == slotNumber:
			// Longest region first: "one hundred six" beats "one".
			for k := min(maxNumberTokens, len(tokens)-ti); k >= 1; k-- {
				region := strings.Join(tokens[ti:ti+k], " ")
				n, wasAliased, ok := ParseNumber(region)
				if !ok {
					continue
				}
				args[pt.name] = strconv.Itoa(n)
				aliasedSlots[pt.name] = wasAliased
				if walk(pi+1, ti+k) {
					return true
				}
				delete(args, pt.name)
				delete(aliasedSlots, pt.name)
			}
			return false
		}
		return false
	}

	if !walk(0, 0) {
		return nil, false
	}
	aliased := false
	for _, a := range aliasedSlots {
		aliased = aliased || a
	}
	return &paramMatch{cmd: c, args: args, aliased: aliased}, true
}

// maxNumberTokens bounds how many tokens a <number> slot may consume
// ("one hundred twenty five" is four).
const maxNumberTokens = 4

// Registry is the loaded, validated command collection, indexed by stage.
// Built once at startup; read-only for the engine's lifetime.
type Registry struct {
	exact  map[string]*Command
	params []*Command
}

// NewRegistry compiles and validates defs. Within a stage no two commands
// may share an identical normalized pattern; a violation (or an unparseable
// slot grammar) returns an error wrapping [ErrMalformedPattern] and rejects
// the whole registry.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{exact: make(map[string]*Command, len(defs))}
	var errs []error
	paramSeen := make(map[string]string)

	for i, def := range defs {
		cmd, err := compile(def, i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch cmd.Stage {
		case StageExact:
			if prev, dup := r.exact[cmd.Pattern]; dup {
				errs = append(errs, fmt.Errorf("%w: exact pattern %q registered by both %q and %q",
					ErrMalformedPattern, cmd.Pattern, prev.Name, cmd.Name))
				continue
			}
			r.exact[cmd.Pattern] = cmd
		case StageParameterized:
			key := Normalize(strings.NewReplacer("<", " < ", ">", " > ").Replace(cmd.Pattern))
			if prev, dup := paramSeen[key]; dup {
				errs = append(errs, fmt.Errorf("%w: parameterized pattern %q registered by both %q and %q",
					ErrMalformedPattern, cmd.Pattern, prev, cmd.Name))
				continue
			}
			paramSeen[key] = cmd.Name
			r.params = append(r.params, cmd)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Exact looks a normalized segment up in the exact-stage index.
func (r *Registry) Exact(normalized string) (*Command, bool) {
	cmd, ok := r.exact[normalized]
	return cmd, ok
}

// MatchParameterized tries every parameterized pattern against the
// normalized tokens and applies the tie-break policy: the candidate with
// the most fixed (non-slot) tokens wins; remaining ties go to the
// first-registered command. tied reports that an equally-weighted
// candidate was discarded, so callers can log the policy decision.
func (r *Registry) MatchParameterized(tokens []string) (m *paramMatch, tied, ok bool) {
	var best *paramMatch
	for _, cmd := range r.params {
		cand, hit := cmd.match(tokens)
		if !hit {
			continue
		}
		switch {
		case best == nil:
			best = cand
		case cand.cmd.fixedCount > best.cmd.fixedCount:
			best, tied = cand, false
		case cand.cmd.fixedCount == best.cmd.fixedCount:
			// Equal weight: first-registered wins.
			tied = true
		}
	}
	if best == nil {
		return nil, false, false
	}
	return best, tied, true
}

// Len reports how many commands the registry holds, for startup logging.
func (r *Registry) Len() int {
	return len(r.exact) + len(r.params)
}

// Names returns the command names in registration order, used to build the
// arbiter's command catalog prompt.
func (r *Registry) Names() []string {
	all := make([]*Command, 0, r.Len())
	for _, c := range r.exact {
		all = append(all, c)
	}
	all = append(all, r.params...)
	names := make([]string, len(all))
	order := make([]int, len(all))
	for i, c := range all {
		names[i] = c.Name
		order[i] = c.order
	}
	// Insertion sort by registration order; registries are small.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && order[j-1] > order[j]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

// Resolve finds a command by name, for resolving arbiter command
// references back to executable commands.
func (r *Registry) Resolve(name string) (*Command, bool) {
	norm := Normalize(name)
	if cmd, ok := r.exact[norm]; ok {
		return cmd, true
	}
	for _, cmd := range r.params {
		if cmd.Name == name || Normalize(cmd.Name) == norm {
			return cmd, true
		}
	}
	for _, cmd := range r.exact {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return nil, false
}
