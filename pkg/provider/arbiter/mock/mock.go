// Package mock provides a test double for the arbiter.Provider interface.
//
// Use Provider in unit tests to verify what the engine sends to the
// arbiter and to feed controlled decisions without a live model.
//
// Example:
//
//	p := &mock.Provider{
//	    Decision: &arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 1},
//	}
//	d, err := p.Decide(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxctl/pkg/provider/arbiter"
)

// DecideCall records a single invocation of Decide.
type DecideCall struct {
	// Ctx is the context passed to Decide.
	Ctx context.Context
	// Req is the request passed to Decide.
	Req arbiter.Request
}

// Provider is a mock implementation of arbiter.Provider.
// Zero values cause Decide to return (nil, nil). Set Err to inject a
// failure, Delay to simulate a slow model.
type Provider struct {
	mu sync.Mutex

	// Decision is returned by Decide when Err is nil.
	Decision *arbiter.Decision

	// Err, if non-nil, is returned as the error from Decide.
	Err error

	// Delay is waited (or the context's cancellation, whichever comes
	// first) before Decide returns. Use it to exercise the engine's
	// deadline handling.
	Delay func(ctx context.Context) error

	// DecideFunc, if set, overrides all of the above.
	DecideFunc func(ctx context.Context, req arbiter.Request) (*arbiter.Decision, error)

	// DecideCalls records every invocation of Decide in order.
	DecideCalls []DecideCall
}

var _ arbiter.Provider = (*Provider)(nil)

// Decide implements arbiter.Provider.
func (p *Provider) Decide(ctx context.Context, req arbiter.Request) (*arbiter.Decision, error) {
	p.mu.Lock()
	p.DecideCalls = append(p.DecideCalls, DecideCall{Ctx: ctx, Req: req})
	fn := p.DecideFunc
	delay := p.Delay
	decision := p.Decision
	err := p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return nil, derr
		}
	}
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// Name implements arbiter.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// Calls returns a snapshot of the recorded invocations.
func (p *Provider) Calls() []DecideCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DecideCall, len(p.DecideCalls))
	copy(out, p.DecideCalls)
	return out
}
