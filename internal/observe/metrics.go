// Package observe provides OpenTelemetry metrics for the realtime gateway,
// exported over the Prometheus-compatible /telemetry endpoint.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/RookieZoe/qwen3-asr-realtime-api"

// latencyBuckets are tuned for the sub-second-to-few-second range this
// gateway's VAD windows and transcriber calls actually fall in.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds every OpenTelemetry instrument the gateway records. All
// fields are safe for concurrent use.
type Metrics struct {
	ConnectionsTotal   metric.Int64Counter
	ActiveConnections  metric.Int64UpDownCounter
	SessionsTotal      metric.Int64Counter
	AudioSecondsTotal  metric.Float64Counter
	ErrorsTotal        metric.Int64Counter

	VADWindowDuration      metric.Float64Histogram
	TranscriberCallDuration metric.Float64Histogram

	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics builds a Metrics bound to mp. Returns an error if any
// instrument fails to register (a misconfigured meter provider, never a
// runtime condition).
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.ConnectionsTotal, err = m.Int64Counter("qwen3asr.connections.total",
		metric.WithDescription("Total WebSocket connections accepted.")); err != nil {
		return nil, err
	}
	if met.ActiveConnections, err = m.Int64UpDownCounter("qwen3asr.connections.active",
		metric.WithDescription("Currently open WebSocket connections.")); err != nil {
		return nil, err
	}
	if met.SessionsTotal, err = m.Int64Counter("qwen3asr.sessions.total",
		metric.WithDescription("Total realtime sessions started.")); err != nil {
		return nil, err
	}
	if met.AudioSecondsTotal, err = m.Float64Counter("qwen3asr.audio.seconds_total",
		metric.WithDescription("Total seconds of audio processed."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if met.ErrorsTotal, err = m.Int64Counter("qwen3asr.errors.total",
		metric.WithDescription("Total protocol/backend errors surfaced to clients.")); err != nil {
		return nil, err
	}
	if met.VADWindowDuration, err = m.Float64Histogram("qwen3asr.vad.window.duration",
		metric.WithDescription("Latency of one VAD window's detector call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.TranscriberCallDuration, err = m.Float64Histogram("qwen3asr.transcriber.call.duration",
		metric.WithDescription("Latency of a transcriber backend call (init/feed/finalize)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("qwen3asr.http.request.duration",
		metric.WithDescription("REST endpoint latency by path."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, built against
// the globally registered meter provider on first call.
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

// RecordConnection records a newly accepted connection.
func (m *Metrics) RecordConnection(ctx context.Context) {
	m.ConnectionsTotal.Add(ctx, 1)
	m.ActiveConnections.Add(ctx, 1)
}

// RecordDisconnection records a connection closing.
func (m *Metrics) RecordDisconnection(ctx context.Context) {
	m.ActiveConnections.Add(ctx, -1)
}

// RecordSessionStarted records a new realtime session.
func (m *Metrics) RecordSessionStarted(ctx context.Context) {
	m.SessionsTotal.Add(ctx, 1)
}

// RecordAudioSeconds adds processed audio duration to the running total.
func (m *Metrics) RecordAudioSeconds(ctx context.Context, seconds float64) {
	m.AudioSecondsTotal.Add(ctx, seconds)
}

// RecordError records one protocol/backend error, tagged by its code.
func (m *Metrics) RecordError(ctx context.Context, code string) {
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordVADWindow records the latency of one VAD detector call.
func (m *Metrics) RecordVADWindow(ctx context.Context, seconds float64) {
	m.VADWindowDuration.Record(ctx, seconds)
}

// RecordTranscriberCall records the latency of one backend call, tagged by
// which of init/feed/finalize it was.
func (m *Metrics) RecordTranscriberCall(ctx context.Context, op string, seconds float64) {
	m.TranscriberCallDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
}

// RecordHTTPRequest records one REST endpoint's latency.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, path string, seconds float64) {
	m.HTTPRequestDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("path", path)))
}
