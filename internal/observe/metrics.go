// Package observe provides application-wide observability primitives for
// Coachly: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// through a Prometheus bridge set up by [InitProvider], so everything stays
// scrapeable on the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all Coachly metrics.
const meterName = "github.com/coachly-ai/coachly"

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// GenerationDuration tracks single LLM generation-call latency.
	GenerationDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end question pipeline latency, from
	// request to validated question.
	PipelineDuration metric.Float64Histogram

	// STTDuration tracks the audio seconds covered by each final
	// transcript, as reported by the transcription backend.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// GenerationCalls counts LLM generation attempts. Attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	GenerationCalls metric.Int64Counter

	// Regenerations counts validation-triggered retries. Attribute:
	//   attribute.String("reason", "format"|"hallucination"|"opener"|"repeat")
	Regenerations metric.Int64Counter

	// DeterministicFallbacks counts questions served from fallback
	// templates after retries were exhausted. Attribute:
	//   attribute.String("stage", ...)
	DeterministicFallbacks metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// DroppedFinals counts final transcripts discarded because a previous
	// turn was still being processed.
	DroppedFinals metric.Int64Counter

	// ActiveVoiceSessions tracks live voice interview sessions.
	ActiveVoiceSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// interactive generation and voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("coachly.generation.duration",
		metric.WithDescription("Latency of a single LLM generation call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("coachly.pipeline.duration",
		metric.WithDescription("End-to-end latency of the question pipeline."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("coachly.stt.duration",
		metric.WithDescription("Audio seconds covered by each final transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("coachly.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.GenerationCalls, err = m.Int64Counter("coachly.generation.calls",
		metric.WithDescription("Total LLM generation attempts by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.Regenerations, err = m.Int64Counter("coachly.pipeline.regenerations",
		metric.WithDescription("Validation-triggered regenerations by reason."),
	); err != nil {
		return nil, err
	}
	if met.DeterministicFallbacks, err = m.Int64Counter("coachly.pipeline.fallbacks",
		metric.WithDescription("Questions served from deterministic fallback templates."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("coachly.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFinals, err = m.Int64Counter("coachly.voice.dropped_finals",
		metric.WithDescription("Final transcripts dropped while a turn was in flight."),
	); err != nil {
		return nil, err
	}

	if met.ActiveVoiceSessions, err = m.Int64UpDownCounter("coachly.voice.active_sessions",
		metric.WithDescription("Number of live voice interview sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("coachly.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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
// on first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which cannot happen with the global provider.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGenerationCall increments the generation-attempt counter.
func (m *Metrics) RecordGenerationCall(ctx context.Context, backend, status string) {
	m.GenerationCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
}

// RecordRegeneration increments the regeneration counter for one
// validation-stage rejection.
func (m *Metrics) RecordRegeneration(ctx context.Context, reason string) {
	m.Regenerations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordFallback increments the deterministic-fallback counter.
func (m *Metrics) RecordFallback(ctx context.Context, stage string) {
	m.DeterministicFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}
