// Package mode holds the engine's operating state: whether it is
// listening, and whether unmatched speech becomes dictation or is held to
// command semantics.
package mode

import "sync"

// State is the engine's operating mode.
type State string

const (
	// Paused is the initial state. Segments arriving while paused are
	// dropped, not buffered.
	Paused State = "paused"

	// Command matches segments against the command registry first.
	Command State = "command"

	// Dictation treats unmatched speech as prose to be typed.
	Dictation State = "dictation"
)

// Machine is the single mutable mode value. The processing worker owns
// transitions; everything else reads snapshots through Current. Safe for
// concurrent use.
type Machine struct {
	mu         sync.Mutex
	state      State
	lastActive State
	onChange   func(old, new State)
}

// Option configures a Machine.
type Option func(*Machine)

// WithInitialState overrides the Paused default.
func WithInitialState(s State) Option {
	return func(m *Machine) {
		m.state = s
		if s != Paused {
			m.lastActive = s
		}
	}
}

// WithChangeHook registers a callback invoked (under the machine's lock)
// on every state change. Used for logging and the mode gauge.
func WithChangeHook(fn func(old, new State)) Option {
	return func(m *Machine) {
		m.onChange = fn
	}
}

// New builds a Machine. The initial state is Paused and the remembered
// active mode defaults to Command.
func New(opts ...Option) *Machine {
	m := &Machine{
		state:      Paused,
		lastActive: Command,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Current returns a snapshot of the state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Listening reports whether segments should be processed at all.
func (m *Machine) Listening() bool {
	return m.Current() != Paused
}

// Toggle flips Paused and the last active mode. It is the external
// (hotkey) transition: pausing remembers where we were, resuming returns
// there.
func (m *Machine) Toggle() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Paused {
		m.transition(m.lastActive)
	} else {
		m.transition(Paused)
	}
	return m.state
}

// Pause transitions any state to Paused. Spoken "stop listening" lands
// here.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(Paused)
}

// Set transitions to an explicit active mode. Spoken "command mode" and
// "dictation mode" land here; setting Paused behaves like Pause.
func (m *Machine) Set(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(s)
}

// transition must be called with the lock held.
func (m *Machine) transition(to State) {
	if to == m.state {
		return
	}
	old := m.state
	if to != Paused {
		m.lastActive = to
	}
	m.state = to
	if m.onChange != nil {
		m.onChange(old, to)
	}
}

// controlPhrases maps normalized spoken phrases to their transitions.
// These are intercepted before the matching pipeline runs so that "stop
// listening" works identically in every mode.
var controlPhrases = map[string]State{
	"stop listening":  Paused,
	"pause listening": Paused,
	"voice off":       Paused,
	"command mode":    Command,
	"dictation mode":  Dictation,
}

// Control checks whether a normalized segment is a spoken mode-control
// phrase and applies it. The boolean reports whether the segment was
// consumed.
func (m *Machine) Control(normalized string) (State, bool) {
	to, ok := controlPhrases[normalized]
	if !ok {
		return "", false
	}
	m.Set(to)
	return to, true
}
