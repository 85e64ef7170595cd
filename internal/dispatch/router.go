// Package dispatch routes match results to their output surface: actions
// to the key-injection surface, text to the typing surface.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/pkg/types"
)

// ActionSurface executes keystrokes, modifier chords, and macros. The OS
// integration lives behind this interface; the router never knows how keys
// are injected.
type ActionSurface interface {
	Perform(ctx context.Context, action types.Action) error
}

// TextSurface types literal text at the cursor.
type TextSurface interface {
	Type(ctx context.Context, text types.FormattedText) error
}

// Router sends each result to exactly one surface. Surface failures are
// absorbed: they are logged and counted but never propagate upstream,
// because a failed keystroke must not stall the utterance queue.
type Router struct {
	actions ActionSurface
	text    TextSurface
	log     *slog.Logger
	onError func(stage intent.Stage)
}

// Option configures a Router.
type Option func(*Router)

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Router) {
		r.log = log
	}
}

// WithErrorHook registers a callback fired on every absorbed surface
// failure, keyed by the stage that produced the result.
func WithErrorHook(fn func(stage intent.Stage)) Option {
	return func(r *Router) {
		r.onError = fn
	}
}

// NewRouter builds a Router over the two surfaces.
func NewRouter(actions ActionSurface, text TextSurface, opts ...Option) *Router {
	r := &Router{
		actions: actions,
		text:    text,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Dispatch delivers one result. A result carrying an action goes to the
// action surface; one carrying text goes to the text surface. A result
// carrying neither is a programming error and is reported as one.
func (r *Router) Dispatch(ctx context.Context, res intent.Result) error {
	switch {
	case res.Action != nil:
		if err := r.actions.Perform(ctx, *res.Action); err != nil {
			r.absorb(res, fmt.Errorf("dispatch: perform %q: %w", res.Action.Name, err))
		}
	case res.Text != nil:
		if err := r.text.Type(ctx, *res.Text); err != nil {
			r.absorb(res, fmt.Errorf("dispatch: type text: %w", err))
		}
	default:
		return fmt.Errorf("dispatch: result for %q carries neither action nor text", res.Raw)
	}
	return nil
}

func (r *Router) absorb(res intent.Result, err error) {
	r.log.Error("surface dispatch failed",
		slog.String("stage", string(res.Stage)),
		slog.String("segment", res.Normalized),
		slog.Any("error", err))
	if r.onError != nil {
		r.onError(res.Stage)
	}
}
