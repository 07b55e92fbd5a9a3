// Package observe provides application-wide observability primitives for the
// LABS streaming client: OpenTelemetry metrics, tracing, structured logging,
// and HTTP middleware for the admin server.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the admin /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all client metrics.
const meterName = "github.com/CADX03/AI-Voice-Assistant"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// ConnectDuration tracks how long opening the backend WebSocket takes,
	// including the config message. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	ConnectDuration metric.Float64Histogram

	// DecodeDuration tracks reply decoding latency. Use with attribute:
	//   attribute.String("mime", ...)
	DecodeDuration metric.Float64Histogram

	// --- Counters ---

	// FramesSent counts binary audio frames written to the socket.
	FramesSent metric.Int64Counter

	// BytesSent counts audio bytes written to the socket.
	BytesSent metric.Int64Counter

	// FramesDropped counts audio frames discarded before sending. Use with
	// attribute: attribute.String("reason", "not_open"|"write_error"|"encoder_backlog")
	FramesDropped metric.Int64Counter

	// InboundMessages counts messages received from the backend. Use with
	// attribute: attribute.String("kind", "audio"|"audio_metadata"|"data"|"command"|"error"|"unknown")
	InboundMessages metric.Int64Counter

	// PlaybackEvents counts reply playback transitions. Use with attribute:
	//   attribute.String("event", "started"|"interrupted"|"finished"|"pending")
	PlaybackEvents metric.Int64Counter

	// --- Error counters ---

	// Errors counts non-fatal errors by taxonomy. Use with attribute:
	//   attribute.String("kind", "transport"|"protocol"|"decode"|"ordering"|"backend")
	Errors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of open backend connections.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks admin HTTP request processing time. Use with
	// attributes: method, route ("/healthz", "/readyz", "/metrics" or "other")
	// and status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// connection and decode latencies.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ConnectDuration, err = m.Float64Histogram("labs.connect.duration",
		metric.WithDescription("Latency of opening the backend session socket."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("labs.decode.duration",
		metric.WithDescription("Latency of decoding a reply audio payload."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.FramesSent, err = m.Int64Counter("labs.audio.frames_sent",
		metric.WithDescription("Total binary audio frames sent to the backend."),
	); err != nil {
		return nil, err
	}
	if met.BytesSent, err = m.Int64Counter("labs.audio.bytes_sent",
		metric.WithDescription("Total audio bytes sent to the backend."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("labs.audio.frames_dropped",
		metric.WithDescription("Total audio frames discarded before sending, by reason."),
	); err != nil {
		return nil, err
	}
	if met.InboundMessages, err = m.Int64Counter("labs.inbound.messages",
		metric.WithDescription("Total messages received from the backend, by kind."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackEvents, err = m.Int64Counter("labs.playback.events",
		metric.WithDescription("Total reply playback transitions, by event."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("labs.errors",
		metric.WithDescription("Total non-fatal errors, by kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("labs.active_sessions",
		metric.WithDescription("Number of open backend session sockets."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("labs.http.request.duration",
		metric.WithDescription("Admin HTTP request latency by method and path."),
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

// RecordConnect records one connection attempt and its latency.
func (m *Metrics) RecordConnect(ctx context.Context, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ConnectDuration.Record(ctx, d.Seconds(), metric.WithAttributes(Attr("status", status)))
}

// RecordFrameSent records one audio frame written to the socket.
func (m *Metrics) RecordFrameSent(ctx context.Context, size int) {
	m.FramesSent.Add(ctx, 1)
	m.BytesSent.Add(ctx, int64(size))
}

// RecordFrameDropped records one discarded audio frame.
func (m *Metrics) RecordFrameDropped(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}

// RecordInbound records one message received from the backend.
func (m *Metrics) RecordInbound(ctx context.Context, kind string) {
	m.InboundMessages.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordPlayback records one playback transition.
func (m *Metrics) RecordPlayback(ctx context.Context, event string) {
	m.PlaybackEvents.Add(ctx, 1, metric.WithAttributes(Attr("event", event)))
}

// RecordError records one non-fatal error of the given kind.
func (m *Metrics) RecordError(ctx context.Context, kind string) {
	m.Errors.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordDecode records the latency of decoding one reply payload.
func (m *Metrics) RecordDecode(ctx context.Context, mime string, d time.Duration) {
	m.DecodeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(Attr("mime", mime)))
}
