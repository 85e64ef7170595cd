// Package file provides an utterance source that reads a recorded
// session from a JSONL file, one utterance per line. It is the
// deterministic input behind the replay harness and works anywhere a live
// recognizer would.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/voxctl/pkg/provider/source"
	"github.com/MrWong99/voxctl/pkg/types"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithPacing replays utterances with their original inter-utterance
// delays instead of as fast as the consumer drains them.
func WithPacing() Option {
	return func(p *Provider) {
		p.paced = true
	}
}

// Provider implements source.Provider over a JSONL session recording.
type Provider struct {
	path  string
	paced bool
}

var _ source.Provider = (*Provider)(nil)

// New creates a Provider reading the given file.
func New(path string, opts ...Option) (*Provider, error) {
	if path == "" {
		return nil, errors.New("file: path must not be empty")
	}
	p := &Provider{path: path}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// record is one line of the recording.
type record struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
}

// Open implements source.Provider.
func (p *Provider) Open(ctx context.Context) (source.Stream, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		utterances: make(chan types.Utterance),
		cancel:     cancel,
	}
	s.wg.Add(1)
	go s.readLoop(ctx, f, p.paced)
	return s, nil
}

// Name implements source.Provider.
func (p *Provider) Name() string {
	return "file"
}

type stream struct {
	utterances chan types.Utterance
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	errMu sync.Mutex
	err   error
}

func (s *stream) Utterances() <-chan types.Utterance { return s.utterances }

func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *stream) readLoop(ctx context.Context, f *os.File, paced bool) {
	defer s.wg.Done()
	defer close(s.utterances)
	defer f.Close()

	var prevEnd int64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.errMu.Lock()
			s.err = fmt.Errorf("file: line %d: %w", line, err)
			s.errMu.Unlock()
			return
		}

		if paced && prevEnd > 0 && rec.StartMs > prevEnd {
			select {
			case <-time.After(time.Duration(rec.StartMs-prevEnd) * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
		prevEnd = rec.EndMs

		u := types.Utterance{
			RawText:    rec.Text,
			Confidence: rec.Confidence,
			Start:      time.Duration(rec.StartMs) * time.Millisecond,
			End:        time.Duration(rec.EndMs) * time.Millisecond,
		}
		select {
		case s.utterances <- u:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.errMu.Lock()
		s.err = fmt.Errorf("file: scan: %w", err)
		s.errMu.Unlock()
	}
}
