// Package engine owns the utterance queue and the single processing
// worker that drives segments through the matching pipeline and out to
// the dispatch router.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxctl/internal/diag"
	pgstore "github.com/MrWong99/voxctl/internal/diag/postgres"
	"github.com/MrWong99/voxctl/internal/dispatch"
	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/internal/mode"
	"github.com/MrWong99/voxctl/internal/observe"
	"github.com/MrWong99/voxctl/internal/resilience"
	"github.com/MrWong99/voxctl/pkg/provider/arbiter"
	"github.com/MrWong99/voxctl/pkg/provider/source"
	"github.com/MrWong99/voxctl/pkg/types"
)

// BackpressurePolicy governs a full utterance queue.
type BackpressurePolicy string

const (
	// Block stalls the ingestion goroutine until the worker frees a slot.
	// Nothing is lost, at the cost of delayed intake.
	Block BackpressurePolicy = "block"

	// DropOldest discards the oldest queued utterance to admit the new
	// one. Freshness over completeness.
	DropOldest BackpressurePolicy = "drop-oldest"
)

const (
	defaultQueueSize      = 16
	defaultArbiterTimeout = 600 * time.Millisecond
)

// Recorder persists per-segment telemetry. *postgres.Store satisfies it;
// a nil Recorder disables persistence.
type Recorder interface {
	RecordSegment(ctx context.Context, rec pgstore.SegmentRecord) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueSize sets the utterance queue capacity. Default: 16.
func WithQueueSize(n int) Option {
	return func(e *Engine) { e.queueSize = n }
}

// WithBackpressure selects the full-queue policy. Default: Block.
func WithBackpressure(p BackpressurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithArbiter enables the decision model for ambiguous segments.
func WithArbiter(p arbiter.Provider, timeout time.Duration) Option {
	return func(e *Engine) {
		e.arbiter = p
		if timeout > 0 {
			e.arbiterTimeout = timeout
		}
	}
}

// WithRecorder enables per-segment telemetry persistence.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithWindowContext registers the active-window collaborator, queried on
// demand when the arbiter is consulted. Without it the arbiter sees no
// window context.
func WithWindowContext(fn func(ctx context.Context) types.WindowContext) Option {
	return func(e *Engine) { e.window = fn }
}

// WithMetrics replaces the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracker replaces the default latency tracker.
func WithTracker(t *diag.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine wires a source stream through the matcher to the router.
//
// Concurrency model: one ingestion goroutine moves utterances from the
// source into a bounded queue; one worker drains the queue and processes
// each utterance to completion — including any arbiter call — before
// touching the next. Segment order within and across utterances is
// therefore dispatch order.
type Engine struct {
	src      source.Provider
	matcher  *intent.Matcher
	registry *intent.Registry
	modes    *mode.Machine
	router   *dispatch.Router

	arbiter        arbiter.Provider
	arbiterTimeout time.Duration
	breaker        *resilience.Breaker
	window         func(ctx context.Context) types.WindowContext

	metrics  *observe.Metrics
	tracker  *diag.Tracker
	recorder Recorder
	log      *slog.Logger

	queueSize int
	policy    BackpressurePolicy
	queue     chan types.Utterance
}

// New builds an Engine. src, matcher, registry, modes, and router are
// required; everything else has defaults.
func New(src source.Provider, matcher *intent.Matcher, registry *intent.Registry,
	modes *mode.Machine, router *dispatch.Router, opts ...Option) (*Engine, error) {
	if src == nil || matcher == nil || registry == nil || modes == nil || router == nil {
		return nil, errors.New("engine: src, matcher, registry, modes, and router are required")
	}
	e := &Engine{
		src:            src,
		matcher:        matcher,
		registry:       registry,
		modes:          modes,
		router:         router,
		arbiterTimeout: defaultArbiterTimeout,
		metrics:        observe.DefaultMetrics(),
		tracker:        diag.NewTracker(),
		log:            slog.Default(),
		queueSize:      defaultQueueSize,
		policy:         Block,
	}
	for _, o := range opts {
		o(e)
	}
	if e.policy != Block && e.policy != DropOldest {
		return nil, fmt.Errorf("engine: unknown backpressure policy %q", e.policy)
	}
	e.queue = make(chan types.Utterance, e.queueSize)
	if e.arbiter != nil {
		e.breaker = resilience.New("arbiter", resilience.WithLogger(e.log))
	}
	return e, nil
}

// Toggle is the external hotkey transition: pause, or resume the last
// active mode. Pausing also discards utterances still queued.
func (e *Engine) Toggle() mode.State {
	s := e.modes.Toggle()
	if s == mode.Paused {
		e.drainQueue("paused")
	}
	return s
}

// Latency reports the current latency window.
func (e *Engine) Latency() diag.Report {
	return e.tracker.Snapshot()
}

// Run opens the source stream and processes it until ctx is cancelled or
// the stream ends. It blocks; run it from its own goroutine or let it be
// the program's main loop.
func (e *Engine) Run(ctx context.Context) error {
	stream, err := e.src.Open(ctx)
	if err != nil {
		return fmt.Errorf("engine: open source: %w", err)
	}
	defer stream.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.ingest(ctx, stream) })
	g.Go(func() error { return e.work(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if serr := stream.Err(); serr != nil {
		return fmt.Errorf("engine: source stream: %w", serr)
	}
	return nil
}

// ingest moves utterances from the stream into the queue, applying the
// pause gate and the backpressure policy.
func (e *Engine) ingest(ctx context.Context, stream source.Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-stream.Utterances():
			if !ok {
				close(e.queue)
				return nil
			}
			if !e.modes.Listening() {
				e.metrics.RecordDrop(ctx, "paused")
				continue
			}
			e.enqueue(ctx, u)
		}
	}
}

func (e *Engine) enqueue(ctx context.Context, u types.Utterance) {
	if e.policy == Block {
		select {
		case e.queue <- u:
			e.metrics.QueueDepth.Add(ctx, 1)
		case <-ctx.Done():
		}
		return
	}

	// DropOldest: evict until the new utterance fits. The worker may race
	// us for the head slot, which is fine either way.
	for {
		select {
		case e.queue <- u:
			e.metrics.QueueDepth.Add(ctx, 1)
			return
		default:
		}
		select {
		case old := <-e.queue:
			e.metrics.QueueDepth.Add(ctx, -1)
			e.metrics.RecordDrop(ctx, "backpressure")
			e.log.Warn("utterance dropped under backpressure",
				slog.String("text", old.RawText))
		case <-ctx.Done():
			return
		}
	}
}

// drainQueue discards everything currently queued.
func (e *Engine) drainQueue(reason string) {
	for {
		select {
		case _, ok := <-e.queue:
			if !ok {
				return
			}
			e.metrics.QueueDepth.Add(context.Background(), -1)
			e.metrics.RecordDrop(context.Background(), reason)
		default:
			return
		}
	}
}

// work drains the queue one utterance at a time.
func (e *Engine) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-e.queue:
			if !ok {
				return nil
			}
			e.metrics.QueueDepth.Add(ctx, -1)
			e.processUtterance(ctx, u)
		}
	}
}

func (e *Engine) processUtterance(ctx context.Context, u types.Utterance) {
	segments := intent.Split(u.RawText)
	for _, seg := range segments {
		// A pause landing mid-utterance cancels the remaining segments.
		// Already-dispatched actions stand; there is no undo.
		if !e.modes.Listening() {
			e.metrics.RecordDrop(ctx, "paused")
			e.log.Debug("segments cancelled by pause",
				slog.Int("remaining", len(segments)-seg.Index))
			return
		}
		e.processSegment(ctx, u, seg)
	}
}

func (e *Engine) processSegment(ctx context.Context, u types.Utterance, seg types.Segment) {
	ctx, span := observe.StartSpan(ctx, "engine.segment")
	defer span.End()
	start := time.Now()

	norm := intent.Normalize(seg.Text)
	if state, ok := e.modes.Control(norm); ok {
		if state == mode.Paused {
			e.drainQueue("paused")
		}
		e.log.Info("mode changed by voice", slog.String("mode", string(state)))
		return
	}

	res := e.matcher.Match(seg.Text)

	// The arbiter sees two kinds of doubt: a match below the confidence
	// floor, and an unmatched segment spoken in command mode, where the
	// speaker probably meant a command the registry missed. In dictation
	// mode unmatched speech is simply prose.
	consult := res.Ambiguous ||
		(res.Stage == intent.StageDictation && norm != "" && e.modes.Current() == mode.Command)
	arbiterUsed := ""
	if consult && e.arbiter != nil {
		res, arbiterUsed = e.arbitrate(ctx, res)
	}

	// Dictation emissions carry a mode hint so the text surface can decide
	// between prose insertion and literal passthrough.
	if res.Stage == intent.StageDictation && res.Text != nil && res.Text.Hint == "" {
		if e.modes.Current() == mode.Dictation {
			res.Text.Hint = "prose"
		} else {
			res.Text.Hint = "literal"
		}
	}

	if err := e.router.Dispatch(ctx, res); err != nil {
		e.log.Error("dispatch rejected result", slog.Any("error", err))
		return
	}

	elapsed := time.Since(start)
	e.tracker.Record(elapsed)
	e.metrics.RecordMatch(ctx, string(res.Stage), res.Ambiguous, elapsed)
	e.log.Debug("segment resolved",
		slog.String("stage", string(res.Stage)),
		slog.String("segment", norm),
		slog.Float64("confidence", res.Confidence),
		slog.Duration("latency", elapsed))

	if e.recorder != nil {
		rec := pgstore.SegmentRecord{
			Utterance:    u.RawText,
			SegmentIndex: seg.Index,
			Segment:      seg.Text,
			Stage:        string(res.Stage),
			Confidence:   res.Confidence,
			Ambiguous:    res.Ambiguous,
			Arbiter:      arbiterUsed,
			Mode:         string(e.modes.Current()),
			Latency:      elapsed,
		}
		if res.Command != nil {
			rec.Command = res.Command.Name
		}
		if err := e.recorder.RecordSegment(ctx, rec); err != nil {
			e.log.Warn("telemetry record failed", slog.Any("error", err))
		}
	}
}

// arbitrate consults the decision model about an ambiguous result. Any
// failure — timeout, breaker open, parse error — degrades to dictation
// with the raw segment text, never to a user-visible error.
func (e *Engine) arbitrate(ctx context.Context, res intent.Result) (intent.Result, string) {
	req := arbiter.Request{
		Transcript: res.Raw,
		Candidates: e.registry.Names(),
	}
	if e.window != nil {
		req.Window = e.window(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.arbiterTimeout)
	defer cancel()

	start := time.Now()
	var decision *arbiter.Decision
	err := e.breaker.Do(callCtx, func(ctx context.Context) error {
		d, derr := e.arbiter.Decide(ctx, req)
		if derr != nil {
			return derr
		}
		decision = d
		return nil
	})
	elapsed := time.Since(start)

	switch {
	case err == nil && decision != nil:
		e.metrics.RecordArbiter(ctx, e.arbiter.Name(), "ok", elapsed)
		return e.applyDecision(res, decision), e.arbiter.Name()
	case errors.Is(err, resilience.ErrOpen):
		e.metrics.RecordArbiter(ctx, e.arbiter.Name(), "open", elapsed)
	case errors.Is(err, context.DeadlineExceeded):
		e.metrics.RecordArbiter(ctx, e.arbiter.Name(), "timeout", elapsed)
		e.log.Warn("arbiter timed out", slog.Duration("after", elapsed))
	case errors.Is(err, arbiter.ErrUnavailable):
		e.metrics.RecordArbiter(ctx, e.arbiter.Name(), "unavailable", elapsed)
		e.log.Warn("arbiter unavailable", slog.Any("error", err))
	default:
		e.metrics.RecordArbiter(ctx, e.arbiter.Name(), "error", elapsed)
		e.log.Warn("arbiter failed", slog.Any("error", err))
	}

	return dictationFallback(res), e.arbiter.Name()
}

// applyDecision converts the arbiter's verdict back into a result.
func (e *Engine) applyDecision(res intent.Result, d *arbiter.Decision) intent.Result {
	switch d.Intent {
	case arbiter.IntentCommand:
		cmd, ok := e.registry.Resolve(d.CommandRef)
		if !ok {
			e.log.Warn("arbiter referenced unknown command",
				slog.String("command_ref", d.CommandRef))
			return dictationFallback(res)
		}
		// A confirmation of the staged match keeps the slot args the
		// parameterized stage already captured.
		if cmd == res.Command && res.Action != nil {
			res.Text = nil
			res.Confidence = d.Confidence
			res.Ambiguous = false
			return res
		}
		act := cmd.Action(nil)
		res.Command = cmd
		res.Action = &act
		res.Text = nil
		res.Confidence = d.Confidence
		res.Ambiguous = false
		return res

	case arbiter.IntentDictation:
		text := d.FormattedText
		if text == "" {
			text = res.Raw
		}
		res.Stage = intent.StageDictation
		res.Command = nil
		res.Action = nil
		res.Text = &types.FormattedText{Content: text}
		res.Confidence = d.Confidence
		res.Ambiguous = false
		return res
	}
	return dictationFallback(res)
}

// dictationFallback rewrites a result as literal dictation of the raw
// segment.
func dictationFallback(res intent.Result) intent.Result {
	res.Stage = intent.StageDictation
	res.Command = nil
	res.Action = nil
	res.Text = &types.FormattedText{Content: res.Raw}
	res.Ambiguous = false
	return res
}
