// Package surface provides output surface implementations that do not
// touch the OS: a logging surface for dry runs and a capture surface for
// the replay harness.
package surface

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MrWong99/voxctl/pkg/types"
)

// Log writes every action and text emission to a logger instead of
// injecting it. Used with --dry-run and as the default until a real
// injector is wired in.
type Log struct {
	Logger *slog.Logger
}

func (l *Log) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Log) Perform(_ context.Context, a types.Action) error {
	l.logger().Info("action",
		slog.String("kind", string(a.Kind)),
		slog.String("name", a.Name),
		slog.String("payload", a.Payload),
		slog.Any("args", a.Args))
	return nil
}

func (l *Log) Type(_ context.Context, t types.FormattedText) error {
	l.logger().Info("type", slog.String("text", t.Content), slog.String("hint", t.Hint))
	return nil
}

// Capture records everything dispatched to it, in order. The replay
// harness compares its recording against fixture expectations. Safe for
// concurrent use.
type Capture struct {
	mu      sync.Mutex
	actions []types.Action
	texts   []types.FormattedText
}

func (c *Capture) Perform(_ context.Context, a types.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, a)
	return nil
}

func (c *Capture) Type(_ context.Context, t types.FormattedText) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, t)
	return nil
}

// Actions returns a copy of the recorded actions.
func (c *Capture) Actions() []types.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Action, len(c.actions))
	copy(out, c.actions)
	return out
}

// Texts returns a copy of the recorded text emissions.
func (c *Capture) Texts() []types.FormattedText {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.FormattedText, len(c.texts))
	copy(out, c.texts)
	return out
}
