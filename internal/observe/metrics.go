// Package observe provides observability primitives for voxctl:
// OpenTelemetry metrics, tracing, and trace-aware structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// via a Prometheus bridge set up by [InitProvider]. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxctl metrics.
const meterName = "github.com/MrWong99/voxctl"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// SegmentDuration tracks per-segment pipeline latency, from dequeue
	// to dispatch. Use with attribute.String("stage", ...).
	SegmentDuration metric.Float64Histogram

	// ArbiterDuration tracks arbiter round-trip latency, including
	// timeouts.
	ArbiterDuration metric.Float64Histogram

	// Matches counts resolved segments. Use with attributes:
	//   attribute.String("stage", ...), attribute.Bool("ambiguous", ...)
	Matches metric.Int64Counter

	// ArbiterRequests counts arbiter consultations. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ArbiterRequests metric.Int64Counter

	// DispatchFailures counts absorbed surface rejections. Use with
	// attribute.String("stage", ...).
	DispatchFailures metric.Int64Counter

	// DroppedUtterances counts utterances discarded by the pause gate or
	// the drop-oldest backpressure policy. Use with
	// attribute.String("reason", ...).
	DroppedUtterances metric.Int64Counter

	// QueueDepth tracks the utterance queue occupancy.
	QueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized
// for a sub-second interactive pipeline with an 800ms p95 target.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation
// fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SegmentDuration, err = m.Float64Histogram("voxctl.segment.duration",
		metric.WithDescription("Per-segment latency from dequeue to dispatch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ArbiterDuration, err = m.Float64Histogram("voxctl.arbiter.duration",
		metric.WithDescription("Arbiter round-trip latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Matches, err = m.Int64Counter("voxctl.matches",
		metric.WithDescription("Resolved segments by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.ArbiterRequests, err = m.Int64Counter("voxctl.arbiter.requests",
		metric.WithDescription("Arbiter consultations by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.DispatchFailures, err = m.Int64Counter("voxctl.dispatch.failures",
		metric.WithDescription("Surface rejections absorbed by the router."),
	); err != nil {
		return nil, err
	}
	if met.DroppedUtterances, err = m.Int64Counter("voxctl.utterances.dropped",
		metric.WithDescription("Utterances discarded by pause gating or backpressure."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("voxctl.queue.depth",
		metric.WithDescription("Utterance queue occupancy."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first use from the global meter provider. Instrument creation errors
// are impossible with valid instrument names, so they are ignored here.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, _ = NewMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics
}

// RecordMatch records one resolved segment.
func (m *Metrics) RecordMatch(ctx context.Context, stage string, ambiguous bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("ambiguous", ambiguous),
	)
	m.Matches.Add(ctx, 1, attrs)
	m.SegmentDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordArbiter records one arbiter consultation.
func (m *Metrics) RecordArbiter(ctx context.Context, provider, status string, elapsed time.Duration) {
	m.ArbiterRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.ArbiterDuration.Record(ctx, elapsed.Seconds())
}

// RecordDispatchFailure records one absorbed surface rejection.
func (m *Metrics) RecordDispatchFailure(ctx context.Context, stage string) {
	m.DispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordDrop records one discarded utterance.
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.DroppedUtterances.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
