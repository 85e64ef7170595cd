// Package websocket provides an utterance source connected to a
// recognizer daemon over a WebSocket. The daemon pushes one JSON event
// per completed voice-activity segment.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxctl/pkg/provider/source"
	"github.com/MrWong99/voxctl/pkg/types"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithHeader adds an HTTP header to the dial request, typically an
// authorization token for a remote recognizer.
func WithHeader(key, value string) Option {
	return func(p *Provider) {
		p.headers.Set(key, value)
	}
}

// WithBuffer sets the utterance channel capacity. Default: 64.
func WithBuffer(n int) Option {
	return func(p *Provider) {
		p.buffer = n
	}
}

// Provider implements source.Provider over a recognizer WebSocket.
type Provider struct {
	url     string
	headers http.Header
	buffer  int
}

var _ source.Provider = (*Provider)(nil)

// New creates a Provider dialing the given ws:// or wss:// URL.
func New(url string, opts ...Option) (*Provider, error) {
	if url == "" {
		return nil, errors.New("websocket: url must not be empty")
	}
	p := &Provider{
		url:     url,
		headers: http.Header{},
		buffer:  64,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Open implements source.Provider.
func (p *Provider) Open(ctx context.Context) (source.Stream, error) {
	conn, _, err := websocket.Dial(ctx, p.url, &websocket.DialOptions{
		HTTPHeader: p.headers,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", p.url, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		conn:       conn,
		cancel:     cancel,
		utterances: make(chan types.Utterance, p.buffer),
	}
	s.wg.Add(1)
	go s.readLoop(ctx)
	return s, nil
}

// Name implements source.Provider.
func (p *Provider) Name() string {
	return "websocket"
}

// event is the daemon's wire format for one finished utterance.
type event struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
}

type stream struct {
	conn       *websocket.Conn
	cancel     context.CancelFunc
	utterances chan types.Utterance

	once sync.Once
	wg   sync.WaitGroup

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
	s.once.Do(func() {
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "stream closed")
		s.wg.Wait()
	})
	return nil
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.utterances)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.setErr(fmt.Errorf("websocket: read: %w", err))
			}
			return
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			// One garbled event must not kill the stream.
			continue
		}
		if ev.Type != "" && ev.Type != "utterance" {
			continue
		}

		u := types.Utterance{
			RawText:    ev.Text,
			Confidence: ev.Confidence,
			Start:      time.Duration(ev.StartMs) * time.Millisecond,
			End:        time.Duration(ev.EndMs) * time.Millisecond,
		}
		select {
		case s.utterances <- u:
		case <-ctx.Done():
			return
		}
	}
}
