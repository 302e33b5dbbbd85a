// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics and HTTP middleware that records them.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/wakepal/wakepal"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// TTSChunkDuration tracks per-chunk text-to-speech synthesis latency.
	TTSChunkDuration metric.Float64Histogram

	// SegmentDuration tracks the audio length of captured speech segments.
	SegmentDuration metric.Float64Histogram

	// --- Counters ---

	// WakeMatches counts transcripts that began with the wake phrase.
	WakeMatches metric.Int64Counter

	// Interrupts counts interrupted responses. Use with attribute:
	//   attribute.String("source", "voice"|"key")
	Interrupts metric.Int64Counter

	// Segments counts finalised speech segments. Use with attribute:
	//   attribute.String("reason", ...)
	Segments metric.Int64Counter

	// ChunksSpoken counts response chunks played to the speaker.
	ChunksSpoken metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActivePlaybacks tracks the number of responses currently playing.
	ActivePlaybacks metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("wakepal.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("wakepal.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSChunkDuration, err = m.Float64Histogram("wakepal.tts.chunk.duration",
		metric.WithDescription("Latency of per-chunk speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("wakepal.segment.duration",
		metric.WithDescription("Audio length of captured speech segments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeMatches, err = m.Int64Counter("wakepal.wake.matches",
		metric.WithDescription("Total transcripts that began with the wake phrase."),
	); err != nil {
		return nil, err
	}
	if met.Interrupts, err = m.Int64Counter("wakepal.interrupts",
		metric.WithDescription("Total interrupted responses by source."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("wakepal.segments",
		metric.WithDescription("Total finalised speech segments by capture reason."),
	); err != nil {
		return nil, err
	}
	if met.ChunksSpoken, err = m.Int64Counter("wakepal.chunks.spoken",
		metric.WithDescription("Total response chunks played to the speaker."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("wakepal.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActivePlaybacks, err = m.Int64UpDownCounter("wakepal.active_playbacks",
		metric.WithDescription("Number of responses currently playing."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("wakepal.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordInterrupt records an interrupted response with its source ("voice"
// for barge-in, "key" for a keypress).
func (m *Metrics) RecordInterrupt(ctx context.Context, source string) {
	m.Interrupts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordSegment records a finalised speech segment with its capture reason
// and audio length.
func (m *Metrics) RecordSegment(ctx context.Context, reason string, seconds float64) {
	m.Segments.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
	m.SegmentDuration.Record(ctx, seconds)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
