// Package mock provides a test double for the source.Provider interface.
//
// Use Provider to feed a scripted sequence of utterances through the
// engine, or Push for interactive control from the test body.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxctl/pkg/provider/source"
	"github.com/MrWong99/voxctl/pkg/types"
)

// Provider is a mock implementation of source.Provider.
type Provider struct {
	// Scripted is emitted in order as soon as the stream opens. The
	// stream then stays open for Push until Close.
	Scripted []types.Utterance

	// CloseAfterScript ends the stream once Scripted is exhausted, so a
	// test can just wait for the consumer to finish.
	CloseAfterScript bool

	// OpenErr, if non-nil, is returned from Open.
	OpenErr error

	mu      sync.Mutex
	streams []*Stream
}

var _ source.Provider = (*Provider)(nil)

// Open implements source.Provider.
func (p *Provider) Open(ctx context.Context) (source.Stream, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	s := &Stream{ch: make(chan types.Utterance, len(p.Scripted)+16)}
	for _, u := range p.Scripted {
		s.ch <- u
	}
	if p.CloseAfterScript {
		s.Close()
	}
	p.mu.Lock()
	p.streams = append(p.streams, s)
	p.mu.Unlock()
	return s, nil
}

// LastStream returns the most recently opened stream, or nil.
func (p *Provider) LastStream() *Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.streams) == 0 {
		return nil
	}
	return p.streams[len(p.streams)-1]
}

// Name implements source.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// Stream is the mock's source.Stream.
type Stream struct {
	ch   chan types.Utterance
	once sync.Once

	errMu sync.Mutex
	err   error
}

var _ source.Stream = (*Stream)(nil)

// Push feeds one more utterance to the consumer.
func (s *Stream) Push(u types.Utterance) {
	s.ch <- u
}

// Fail records a terminal error and ends the stream.
func (s *Stream) Fail(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.Close()
}

// Utterances implements source.Stream.
func (s *Stream) Utterances() <-chan types.Utterance { return s.ch }

// Err implements source.Stream.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close implements source.Stream.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}
