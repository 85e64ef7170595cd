// Package diag tracks end-to-end latency and summarizes pipeline health.
// The OTel histograms in internal/observe serve external scrapers; this
// tracker answers the in-process question "are we meeting the latency
// target right now" for log lines and the replay report.
package diag

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	// defaultWindow is how many recent samples the rolling window holds.
	defaultWindow = 256

	// DefaultTarget is the p95 latency budget for a segment from utterance
	// completion to dispatch.
	DefaultTarget = 800 * time.Millisecond
)

// Report is a point-in-time latency summary.
type Report struct {
	Count  int
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
	Target time.Duration
}

// Healthy reports whether the window's p95 is inside the target.
func (r Report) Healthy() bool {
	return r.Count == 0 || r.P95 <= r.Target
}

// String renders the report for log output.
func (r Report) String() string {
	return fmt.Sprintf("n=%d p50=%s p95=%s max=%s target=%s healthy=%v",
		r.Count, r.P50, r.P95, r.Max, r.Target, r.Healthy())
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow sets the rolling window size. Default: 256 samples.
func WithWindow(n int) Option {
	return func(t *Tracker) {
		t.samples = make([]time.Duration, n)
	}
}

// WithTarget sets the p95 budget. Default: 800ms.
func WithTarget(d time.Duration) Option {
	return func(t *Tracker) {
		t.target = d
	}
}

// Tracker is a fixed-size rolling window of latency samples. Safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  int
	target  time.Duration
}

// NewTracker builds a Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		samples: make([]time.Duration, defaultWindow),
		target:  DefaultTarget,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Record adds one sample, evicting the oldest once the window is full.
func (t *Tracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.next] = d
	t.next = (t.next + 1) % len(t.samples)
	if t.filled < len(t.samples) {
		t.filled++
	}
}

// Snapshot summarizes the current window.
func (t *Tracker) Snapshot() Report {
	t.mu.Lock()
	window := make([]time.Duration, t.filled)
	copy(window, t.samples[:t.filled])
	target := t.target
	t.mu.Unlock()

	r := Report{Count: len(window), Target: target}
	if len(window) == 0 {
		return r
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
	r.P50 = percentile(window, 0.50)
	r.P95 = percentile(window, 0.95)
	r.Max = window[len(window)-1]
	return r
}

// percentile reads the nearest-rank percentile from a sorted window.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
