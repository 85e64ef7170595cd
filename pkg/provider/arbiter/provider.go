// Package arbiter defines the Provider interface for the small decision
// model consulted on low-confidence segments.
//
// The arbiter is an optional boundary: when a segment matches nothing
// cleanly, the engine may ask a model whether the speaker meant a command
// or prose. The engine bounds every call with a deadline and degrades to
// dictation on any failure, so implementations never need retry logic of
// their own.
//
// Implementors must be safe for concurrent use.
package arbiter

import (
	"context"
	"errors"

	"github.com/MrWong99/voxctl/pkg/types"
)

// ErrUnavailable is returned by providers that are configured off or
// cannot reach their backend. The engine treats it like a timeout:
// dictation fallback, no user-visible error.
var ErrUnavailable = errors.New("arbiter: provider unavailable")

// Intent is the arbiter's classification of a segment.
type Intent string

const (
	// IntentCommand means the segment should execute the referenced command.
	IntentCommand Intent = "command"

	// IntentDictation means the segment is prose to be typed.
	IntentDictation Intent = "dictation"
)

// Request carries one ambiguous segment to the model.
type Request struct {
	// Transcript is the raw segment text as recognized.
	Transcript string

	// Window is the active-window context at utterance time. A terminal
	// and a prose editor can flip the decision for the same transcript.
	Window types.WindowContext

	// Candidates is the command catalog the model may reference, in
	// registration order.
	Candidates []string
}

// Decision is the model's verdict.
type Decision struct {
	// Intent classifies the segment.
	Intent Intent `json:"intent"`

	// Confidence is the model's self-reported certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// FormattedText is the text to type when Intent is dictation. Empty
	// means use the transcript verbatim.
	FormattedText string `json:"formatted_text"`

	// CommandRef names the catalog command when Intent is command.
	CommandRef string `json:"command_ref,omitempty"`
}

// Provider is a pluggable arbiter backend.
type Provider interface {
	// Decide classifies one segment. Implementations must honor ctx's
	// deadline; the engine sets one on every call.
	Decide(ctx context.Context, req Request) (*Decision, error)

	// Name identifies the backend in logs and telemetry.
	Name() string
}
