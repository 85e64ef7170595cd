// Package source defines the Provider interface for utterance input.
//
// A source wraps whatever produces finished transcripts — a recognizer
// daemon on a WebSocket, a recorded session file, a test fixture — and
// exposes them as an ordered stream of types.Utterance values. Voice
// activity detection and transcription happen upstream; by the time an
// utterance reaches a source consumer it is final text.
//
// Implementations must be safe for concurrent use.
package source

import (
	"context"

	"github.com/MrWong99/voxctl/pkg/types"
)

// Stream is an open utterance stream.
//
// Callers must call Close when done; failing to do so may leak goroutines
// and connections inside the provider.
type Stream interface {
	// Utterances returns a read-only channel of finished utterances in
	// completion order. The channel is closed when the stream ends,
	// whether by exhaustion, error, or Close.
	Utterances() <-chan types.Utterance

	// Err reports the terminal error after Utterances is closed, nil on
	// a clean end.
	Err() error

	// Close terminates the stream.
	Close() error
}

// Provider opens utterance streams.
type Provider interface {
	// Open starts a stream. The stream ends when ctx is cancelled.
	Open(ctx context.Context) (Stream, error)

	// Name identifies the source in logs and telemetry.
	Name() string
}
