// Package metrics exposes Prometheus metrics for the voice client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Aayushyaash/Rag-chatbot/internal/conversation"
)

// Metrics contains all Prometheus metrics for the voice client
type Metrics struct {
	// Capture metrics
	CaptureSessions       prometheus.Counter
	CaptureSessionsFailed prometheus.Counter
	CaptureDuration       prometheus.Histogram
	PayloadSize           prometheus.Histogram

	// Conversation exchange metrics
	Exchanges        *prometheus.CounterVec
	ExchangeDuration prometheus.Histogram
	Failures         *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec

	// Playback metrics
	ClipsPlayed prometheus.Counter
	ClipsFailed prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics. A nil registerer
// uses the default registry; tests pass their own.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		// Capture metrics
		CaptureSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_capture_sessions_total",
			Help: "Total number of capture sessions opened",
		}),
		CaptureSessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_capture_sessions_failed_total",
			Help: "Total number of capture sessions that failed to open or finalize",
		}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_capture_duration_seconds",
			Help:    "Duration of capture sessions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		PayloadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_payload_size_bytes",
			Help:    "Size of uploaded voice payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Conversation exchange metrics
		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_exchanges_total",
			Help: "Total number of voice exchanges by outcome",
		}, []string{"outcome"}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_exchange_duration_seconds",
			Help:    "End-to-end duration of backend voice exchanges",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_failures_total",
			Help: "Total number of failures by kind",
		}, []string{"kind"}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_state_transitions_total",
			Help: "Total number of state machine transitions",
		}, []string{"from", "to"}),

		// Playback metrics
		ClipsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_clips_played_total",
			Help: "Total number of answer clips played to completion",
		}),
		ClipsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_clips_failed_total",
			Help: "Total number of answer clips that failed to play",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_http_requests_total",
			Help: "Total number of HTTP requests to the monitor API",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_http_request_duration_seconds",
			Help:    "Duration of monitor API HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordCaptureSession records an opened capture session
func (m *Metrics) RecordCaptureSession() {
	m.CaptureSessions.Inc()
}

// RecordCaptureFailure records a failed capture session
func (m *Metrics) RecordCaptureFailure() {
	m.CaptureSessionsFailed.Inc()
}

// RecordPayload records a finalized capture payload
func (m *Metrics) RecordPayload(durationSeconds float64, sizeBytes int) {
	m.CaptureDuration.Observe(durationSeconds)
	m.PayloadSize.Observe(float64(sizeBytes))
}

// RecordClipPlayed records a completed playback
func (m *Metrics) RecordClipPlayed() {
	m.ClipsPlayed.Inc()
}

// RecordClipFailed records a failed playback
func (m *Metrics) RecordClipFailed() {
	m.ClipsFailed.Inc()
}

// RecordHTTPRequest records a monitor API request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// StateTransition implements conversation.Observer
func (m *Metrics) StateTransition(from, to conversation.State) {
	m.StateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// ExchangeCompleted implements conversation.Observer
func (m *Metrics) ExchangeCompleted(outcome string, elapsed time.Duration) {
	m.Exchanges.WithLabelValues(outcome).Inc()
	m.ExchangeDuration.Observe(elapsed.Seconds())
}

// FailureObserved implements conversation.Observer
func (m *Metrics) FailureObserved(kind conversation.FailureKind) {
	m.Failures.WithLabelValues(string(kind)).Inc()
}

// CaptureStarted implements conversation.Observer
func (m *Metrics) CaptureStarted() {
	m.RecordCaptureSession()
}

// CaptureFailed implements conversation.Observer
func (m *Metrics) CaptureFailed() {
	m.RecordCaptureFailure()
}

// PayloadReady implements conversation.Observer
func (m *Metrics) PayloadReady(duration time.Duration, sizeBytes int) {
	m.RecordPayload(duration.Seconds(), sizeBytes)
}

// PlaybackFinished implements conversation.Observer
func (m *Metrics) PlaybackFinished(ok bool) {
	if ok {
		m.RecordClipPlayed()
	} else {
		m.RecordClipFailed()
	}
}
