// Package types defines the shared types used across all voxctl packages.
//
// These types form the lingua franca between the utterance source, the
// matching pipeline, the arbiter boundary, and the dispatch router. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// Utterance is a single completed speech segment from the upstream
// VAD/STT producer. It is produced once, consumed exactly once by the
// splitter, and never mutated.
type Utterance struct {
	// RawText is the transcript exactly as produced by the recognizer,
	// including any auto-inserted punctuation.
	RawText string

	// Confidence is the recognizer's overall confidence (0.0–1.0).
	// Zero when the producer does not report confidence.
	Confidence float64

	// Start and End delimit the speech segment relative to stream start.
	Start time.Duration
	End   time.Duration
}

// Duration returns the audio length of the utterance.
func (u Utterance) Duration() time.Duration {
	return u.End - u.Start
}

// Segment is one independently-matchable sentence derived from an Utterance.
// Index is the ordinal position within the utterance; segment order must be
// preserved through the whole pipeline.
type Segment struct {
	Text  string
	Index int
}

// WindowContext is a read-only snapshot of the active window, queried on
// demand from the context collaborator. It biases arbiter decisions (the
// same phrase may be a command in a terminal and prose in an editor).
type WindowContext struct {
	// AppID identifies the focused application (bundle ID, app_id, or class).
	AppID string

	// WindowTitle is the focused window's title, when available.
	WindowTitle string

	// CursorMode describes the focused input context when the window system
	// reports it (e.g., "text", "terminal"). Empty when unknown.
	CursorMode string
}

// ActionKind enumerates the action surface payload types.
type ActionKind string

const (
	// ActionKeystroke presses and releases a single key.
	ActionKeystroke ActionKind = "keystroke"

	// ActionModifier presses a key together with modifier keys.
	ActionModifier ActionKind = "modifier"

	// ActionMacro runs a named multi-step action sequence.
	ActionMacro ActionKind = "macro"
)

// Action is a single atomic instruction for the action surface.
type Action struct {
	// Kind selects how Payload is interpreted by the surface.
	Kind ActionKind

	// Name is the originating command name, for diagnostics.
	Name string

	// Payload carries the surface instruction: a key name for keystroke,
	// "key+mod1+mod2" for modifier, a macro name for macro.
	Payload string

	// Args holds the captured slot values of a parameterized command
	// (e.g., {"number": "50"}). Nil for slot-free commands.
	Args map[string]string
}

// FormattedText is a single emission for the text surface.
type FormattedText struct {
	// Content is the text to inject verbatim.
	Content string

	// Hint names the formatting context applied upstream: a formatter name
	// ("snake", "constant", …), "spelled" for a collapsed codeword run, or
	// "prose"/"literal" for dictation, depending on the active mode.
	Hint string
}
