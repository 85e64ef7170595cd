// Package resilience protects the arbiter boundary: a slow or failing
// decision model must degrade the engine to dictation fallback, never
// stall the utterance queue.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned without invoking the call while the breaker is
// open. Callers treat it exactly like an arbiter miss.
var ErrOpen = errors.New("resilience: breaker open")

// State is the breaker's operating state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

const (
	defaultMaxFailures  = 3
	defaultResetTimeout = 15 * time.Second
	defaultProbes       = 2
)

// Option configures a Breaker.
type Option func(*Breaker)

// WithMaxFailures sets how many consecutive failures trip the breaker.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) { b.maxFailures = n }
}

// WithResetTimeout sets how long the breaker stays open before probing.
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) { b.resetTimeout = d }
}

// WithProbes sets how many consecutive half-open successes close the
// breaker again.
func WithProbes(n int) Option {
	return func(b *Breaker) { b.probes = n }
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Breaker) { b.log = log }
}

// Breaker is a three-state circuit breaker sized for a single slow
// dependency. Consecutive failures open it; after the reset timeout a
// small probe budget decides whether it closes again. Safe for concurrent
// use.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probes       int
	log          *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New builds a closed Breaker named for log lines.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:         name,
		maxFailures:  defaultMaxFailures,
		resetTimeout: defaultResetTimeout,
		probes:       defaultProbes,
		log:          slog.Default(),
		state:        StateClosed,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// State reports the current state, re-evaluating the open → half-open
// timer.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeProbe()
	return b.state
}

// Do runs fn unless the breaker is open, in which case it returns
// [ErrOpen] immediately. A context cancellation from the caller's side
// does not count against the breaker; everything else fn returns does.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	b.maybeProbe()
	if b.state == StateOpen {
		b.mu.Unlock()
		return ErrOpen
	}
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.onSuccess()
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Shutdown, not dependency failure.
	default:
		b.onFailure(err)
	}
	return err
}

// maybeProbe moves open → half-open once the reset timeout elapses.
// Must be called with the lock held.
func (b *Breaker) maybeProbe() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.successes = 0
		b.log.Info("breaker probing", slog.String("name", b.name))
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.probes {
			b.state = StateClosed
			b.failures = 0
			b.log.Info("breaker closed", slog.String("name", b.name))
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) onFailure(err error) {
	switch b.state {
	case StateHalfOpen:
		// One bad probe re-opens.
		b.state = StateOpen
		b.openedAt = time.Now()
		b.log.Warn("breaker re-opened",
			slog.String("name", b.name), slog.Any("error", err))
	case StateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.log.Warn("breaker opened",
				slog.String("name", b.name),
				slog.Int("consecutive_failures", b.failures),
				slog.Any("error", err))
		}
	}
}
