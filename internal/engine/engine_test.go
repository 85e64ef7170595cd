package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/voxctl/internal/dispatch"
	"github.com/MrWong99/voxctl/internal/dispatch/surface"
	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/internal/mode"
	"github.com/MrWong99/voxctl/pkg/provider/arbiter"
	arbitermock "github.com/MrWong99/voxctl/pkg/provider/arbiter/mock"
	sourcemock "github.com/MrWong99/voxctl/pkg/provider/source/mock"
	"github.com/MrWong99/voxctl/pkg/types"
)

// recordingSurface implements both dispatch surfaces and keeps a single
// ordered event log, so cross-surface ordering is observable.
type recordingSurface struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSurface) Perform(_ context.Context, a types.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "action:"+a.Name)
	return nil
}

func (r *recordingSurface) Type(_ context.Context, t types.FormattedText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "text:"+t.Content)
	return nil
}

func (r *recordingSurface) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

type fixture struct {
	engine  *Engine
	surface *recordingSurface
	modes   *mode.Machine
	source  *sourcemock.Provider
	arbiter *arbitermock.Provider
}

func newFixture(t *testing.T, utterances []string, arb *arbitermock.Provider, opts ...Option) *fixture {
	t.Helper()

	reg, err := intent.NewRegistry(intent.DefaultDefinitions())
	if err != nil {
		t.Fatal(err)
	}
	matcher := intent.NewMatcher(reg)
	modes := mode.New(mode.WithInitialState(mode.Command))
	surface := &recordingSurface{}
	log := slog.New(slog.DiscardHandler)
	router := dispatch.NewRouter(surface, surface, dispatch.WithLogger(log))

	var scripted []types.Utterance
	for _, u := range utterances {
		scripted = append(scripted, types.Utterance{RawText: u, Confidence: 0.95})
	}
	src := &sourcemock.Provider{Scripted: scripted, CloseAfterScript: true}

	opts = append(opts, WithLogger(log))
	if arb != nil {
		opts = append(opts, WithArbiter(arb, 100*time.Millisecond))
	}
	eng, err := New(src, matcher, reg, modes, router, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{engine: eng, surface: surface, modes: modes, source: src, arbiter: arb}
}

func run(t *testing.T, f *fixture) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.engine.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCommandUtteranceEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"go to line fifty"}, nil)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "action:go to line" {
		t.Errorf("events = %v, want one go-to-line action", events)
	}
}

func TestSegmentOrderAcrossSurfaces(t *testing.T) {
	t.Parallel()

	// The second segment is prose in command mode, so the arbiter is
	// consulted; its latency must not reorder dispatch.
	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 0.9},
		Delay: func(ctx context.Context) error {
			select {
			case <-time.After(30 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	f := newFixture(t, []string{"go to line fifty. this is a note."}, arb)
	run(t, f)

	events := f.surface.Events()
	want := []string{"action:go to line", "text:this is a note"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestArbiterTimeoutFallsBackToDictation(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Delay: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	f := newFixture(t, []string{"close the tab"}, arb)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "text:close the tab" {
		t.Errorf("events = %v, want the literal transcript typed", events)
	}
	if len(arb.Calls()) != 1 {
		t.Errorf("arbiter called %d times, want 1", len(arb.Calls()))
	}
}

func TestArbiterCommandDecision(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{
			Intent:     arbiter.IntentCommand,
			Confidence: 0.93,
			CommandRef: "undo",
		},
	}
	f := newFixture(t, []string{"scratch that last change"}, arb)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "action:undo" {
		t.Errorf("events = %v, want the arbiter-resolved undo action", events)
	}
}

func TestArbiterConfirmationKeepsSlotArgs(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{
			Intent:     arbiter.IntentCommand,
			Confidence: 0.97,
			CommandRef: "go to line",
		},
	}
	reg, err := intent.NewRegistry(intent.DefaultDefinitions())
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.DiscardHandler)
	// A raised floor puts the aliased-number match under the threshold, so
	// the staged result goes through the arbiter before dispatch.
	matcher := intent.NewMatcher(reg, intent.WithThreshold(0.96), intent.WithLogger(log))
	rec := &surface.Capture{}
	router := dispatch.NewRouter(rec, rec, dispatch.WithLogger(log))
	src := &sourcemock.Provider{
		Scripted:         []types.Utterance{{RawText: "go to line for", Confidence: 0.9}},
		CloseAfterScript: true,
	}
	eng, err := New(src, matcher, reg, mode.New(mode.WithInitialState(mode.Command)), router,
		WithLogger(log), WithArbiter(arb, 100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	actions := rec.Actions()
	if len(actions) != 1 {
		t.Fatalf("actions = %v, want one goto-line", actions)
	}
	if actions[0].Payload != "goto-line" || actions[0].Args["number"] != "4" {
		t.Errorf("action = %+v, want goto-line with number=4", actions[0])
	}
}

func TestArbiterResolvesTabCommand(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{
			Intent:     arbiter.IntentCommand,
			Confidence: 0.92,
			CommandRef: "close tab",
		},
	}
	f := newFixture(t, []string{"close the tab"}, arb)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "action:close tab" {
		t.Errorf("events = %v, want the close-tab action", events)
	}
}

func TestArbiterUnknownCommandRefDegrades(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{
			Intent:     arbiter.IntentCommand,
			Confidence: 0.9,
			CommandRef: "warp drive",
		},
	}
	f := newFixture(t, []string{"engage the warp drive"}, arb)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "text:engage the warp drive" {
		t.Errorf("events = %v, want dictation fallback", events)
	}
}

func TestArbiterUnavailableFallsBackToDictation(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Err: fmt.Errorf("dial: %w", arbiter.ErrUnavailable),
	}
	f := newFixture(t, []string{"close the whole window"}, arb)
	run(t, f)

	events := f.surface.Events()
	if len(events) != 1 || events[0] != "text:close the whole window" {
		t.Errorf("events = %v, want dictation fallback", events)
	}
}

func TestPausedDropsUtterances(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"go to line fifty"}, nil)
	f.modes.Pause()
	run(t, f)

	if events := f.surface.Events(); len(events) != 0 {
		t.Errorf("events = %v, want none while paused", events)
	}
}

func TestVoiceModeSwitch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"dictation mode. lets grab lunch later."}, nil)
	run(t, f)

	if got := f.modes.Current(); got != mode.Dictation {
		t.Errorf("mode = %v, want dictation", got)
	}
	events := f.surface.Events()
	if len(events) != 1 || events[0] != "text:lets grab lunch later" {
		t.Errorf("events = %v, want the prose typed without arbitration", events)
	}
}

func TestDictationModeSkipsArbiter(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 1},
	}
	f := newFixture(t, []string{"dictation mode. the quick brown fox."}, arb)
	run(t, f)

	if calls := arb.Calls(); len(calls) != 0 {
		t.Errorf("arbiter consulted %d times in dictation mode, want 0", len(calls))
	}
}

func TestDropOldestEvictsHead(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil, WithQueueSize(2), WithBackpressure(DropOldest))
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		f.engine.enqueue(ctx, types.Utterance{RawText: text})
	}

	if n := len(f.engine.queue); n != 2 {
		t.Fatalf("queue depth = %d, want 2", n)
	}
	head := <-f.engine.queue
	if head.RawText != "two" {
		t.Errorf("head = %q, want the oldest utterance evicted", head.RawText)
	}
}

func TestBlockPolicyRespectsCancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil, WithQueueSize(1))
	ctx, cancel := context.WithCancel(context.Background())

	f.engine.enqueue(ctx, types.Utterance{RawText: "one"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.engine.enqueue(ctx, types.Utterance{RawText: "two"})
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue did not honor cancellation")
	}
}

func TestInvalidBackpressurePolicy(t *testing.T) {
	t.Parallel()

	reg, err := intent.NewRegistry(intent.DefaultDefinitions())
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(&sourcemock.Provider{}, intent.NewMatcher(reg), reg,
		mode.New(), dispatch.NewRouter(&recordingSurface{}, &recordingSurface{}),
		WithBackpressure("buffer-forever"))
	if err == nil {
		t.Fatal("unknown policy must be rejected")
	}
}

func TestWindowContextReachesArbiter(t *testing.T) {
	t.Parallel()

	arb := &arbitermock.Provider{
		Decision: &arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 0.8},
	}
	win := types.WindowContext{AppID: "org.gnome.Terminal", CursorMode: "terminal"}
	f := newFixture(t, []string{"close the tab"}, arb,
		WithWindowContext(func(context.Context) types.WindowContext { return win }))
	run(t, f)

	calls := arb.Calls()
	if len(calls) != 1 {
		t.Fatalf("arbiter calls = %d, want 1", len(calls))
	}
	if calls[0].Req.Window != win {
		t.Errorf("arbiter window = %+v, want %+v", calls[0].Req.Window, win)
	}
	if calls[0].Req.Transcript != "close the tab" {
		t.Errorf("arbiter transcript = %q", calls[0].Req.Transcript)
	}
}

func TestSourceStreamErrorSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.source.CloseAfterScript = false
	streamErr := errors.New("recognizer went away")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	// Open happens inside Run; wait for the stream to exist.
	var stream *sourcemock.Stream
	for stream == nil {
		stream = f.source.LastStream()
		time.Sleep(time.Millisecond)
	}
	stream.Fail(streamErr)

	if err := <-done; !errors.Is(err, streamErr) {
		t.Errorf("Run err = %v, want the stream error", err)
	}
}
