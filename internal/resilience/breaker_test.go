package resilience_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/voxctl/internal/resilience"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func newBreaker(opts ...resilience.Option) *resilience.Breaker {
	opts = append(opts, resilience.WithLogger(slog.New(slog.DiscardHandler)))
	return resilience.New("test", opts...)
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := newBreaker(resilience.WithMaxFailures(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want errBoom", i, err)
		}
	}
	if got := b.State(); got != resilience.StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := b.Do(ctx, ok); !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("open breaker err = %v, want ErrOpen", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := newBreaker(resilience.WithMaxFailures(2))
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, ok)
	b.Do(ctx, fail)
	if got := b.State(); got != resilience.StateClosed {
		t.Errorf("state = %v, want closed after an interleaved success", got)
	}
}

func TestProbeCycleClosesBreaker(t *testing.T) {
	t.Parallel()

	b := newBreaker(
		resilience.WithMaxFailures(1),
		resilience.WithResetTimeout(10*time.Millisecond),
		resilience.WithProbes(2),
	)
	ctx := context.Background()

	b.Do(ctx, fail)
	if got := b.State(); got != resilience.StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != resilience.StateHalfOpen {
		t.Fatalf("state = %v, want half-open after reset timeout", got)
	}

	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe 1: %v", err)
	}
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe 2: %v", err)
	}
	if got := b.State(); got != resilience.StateClosed {
		t.Errorf("state = %v, want closed after successful probes", got)
	}
}

func TestFailedProbeReopens(t *testing.T) {
	t.Parallel()

	b := newBreaker(
		resilience.WithMaxFailures(1),
		resilience.WithResetTimeout(10*time.Millisecond),
	)
	ctx := context.Background()

	b.Do(ctx, fail)
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want errBoom", err)
	}
	if got := b.State(); got != resilience.StateOpen {
		t.Errorf("state = %v, want re-opened", got)
	}
}

func TestCallerCancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	b := newBreaker(resilience.WithMaxFailures(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	if got := b.State(); got != resilience.StateClosed {
		t.Errorf("state = %v, want closed after caller-side cancellation", got)
	}
}
