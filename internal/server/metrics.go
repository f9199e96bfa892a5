package server

import (
	"context"
	"time"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/observe"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/syncx"
)

// counters holds the process-wide totals the JSON /metrics and /stats
// endpoints report, tracked independently of whether OpenTelemetry export
// is enabled. Guarded by syncx.RWGuard so the HTTP handler goroutine can
// read it concurrently with every session's writer goroutine.
type counters struct {
	startTime         time.Time
	totalConnections  int64
	activeConnections int64
	totalSessions     int64
	totalAudioSeconds float64
	errorsTotal       int64

	requestTimes []time.Time
}

// recordRequest appends now to the sliding window and prunes entries older
// than one minute, matching the reference server's get_metrics() pruning step.
func (c *counters) recordRequest(now time.Time) {
	c.requestTimes = append(c.requestTimes, now)
	c.requestTimes = pruneOlderThan(c.requestTimes, now, time.Minute)
}

func (c *counters) requestsPerMinute(now time.Time) int {
	c.requestTimes = pruneOlderThan(c.requestTimes, now, time.Minute)
	return len(c.requestTimes)
}

func pruneOlderThan(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// metricsRecorder composes the process-wide counters with the optional
// OpenTelemetry instruments, so a Session emits both through one interface
// regardless of whether config.Config.OTelMetricsEnabled is set.
type metricsRecorder struct {
	otel     *observe.Metrics // nil when OTel export is disabled
	counters *syncx.RWGuard[counters]
}

func (m *metricsRecorder) RecordSessionStarted(ctx context.Context) {
	m.counters.Write(func(c *counters) { c.totalSessions++ })
	if m.otel != nil {
		m.otel.RecordSessionStarted(ctx)
	}
}

func (m *metricsRecorder) RecordAudioSeconds(ctx context.Context, seconds float64) {
	m.counters.Write(func(c *counters) { c.totalAudioSeconds += seconds })
	if m.otel != nil {
		m.otel.RecordAudioSeconds(ctx, seconds)
	}
}

func (m *metricsRecorder) RecordError(ctx context.Context, code string) {
	m.counters.Write(func(c *counters) { c.errorsTotal++ })
	if m.otel != nil {
		m.otel.RecordError(ctx, code)
	}
}

// RecordVADWindow, RecordTranscriberCall and RecordHTTPRequest have no JSON
// counter equivalent (no endpoint surfaces per-window/per-call latency); they
// pass straight through to OpenTelemetry and are no-ops when it's disabled.

func (m *metricsRecorder) RecordVADWindow(ctx context.Context, seconds float64) {
	if m.otel != nil {
		m.otel.RecordVADWindow(ctx, seconds)
	}
}

func (m *metricsRecorder) RecordTranscriberCall(ctx context.Context, op string, seconds float64) {
	if m.otel != nil {
		m.otel.RecordTranscriberCall(ctx, op, seconds)
	}
}

func (m *metricsRecorder) RecordHTTPRequest(ctx context.Context, path string, seconds float64) {
	if m.otel != nil {
		m.otel.RecordHTTPRequest(ctx, path, seconds)
	}
}
