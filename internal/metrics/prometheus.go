// Package metrics exposes relay, transcript and batch counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/satriahrh/radiocaption/internal/relay"
	"github.com/satriahrh/radiocaption/internal/saga"
)

// Metrics holds every collector the service exports
type Metrics struct {
	// Relay metrics
	ChunksRead      prometheus.Counter
	BytesRead       prometheus.Counter
	ChunksDropped   prometheus.Counter
	ChunksDelivered prometheus.Counter
	QueueLength     prometheus.Gauge
	Stalls          prometheus.Counter

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Transcript metrics
	TranscriptEvents *prometheus.CounterVec

	// Batch metrics
	BatchSteps        *prometheus.CounterVec
	BatchStepDuration *prometheus.HistogramVec

	// Caption subscribers
	WebSocketClients prometheus.Gauge
}

// NewMetrics creates all collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "radiocaption_chunks_read_total",
			Help: "Total number of audio chunks read from the decoder",
		}),
		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "radiocaption_bytes_read_total",
			Help: "Total number of PCM bytes read from the decoder",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "radiocaption_chunks_dropped_total",
			Help: "Total number of chunks evicted from a full queue",
		}),
		ChunksDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "radiocaption_chunks_delivered_total",
			Help: "Total number of chunks handed to the recognizer",
		}),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "radiocaption_queue_depth",
			Help: "Current number of chunks waiting in the relay queue",
		}),
		Stalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "radiocaption_stalls_total",
			Help: "Total number of sessions ended because no audio arrived",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "radiocaption_active_sessions",
			Help: "Current number of running caption sessions",
		}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "radiocaption_sessions_ended_total",
			Help: "Total number of caption sessions by outcome",
		}, []string{"outcome"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "radiocaption_session_duration_seconds",
			Help:    "Duration of caption sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}),

		TranscriptEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "radiocaption_transcript_events_total",
			Help: "Total number of transcript events by kind",
		}, []string{"kind"}),

		BatchSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "radiocaption_batch_steps_total",
			Help: "Total number of batch workflow steps by state",
		}, []string{"workflow", "step", "state"}),
		BatchStepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "radiocaption_batch_step_duration_seconds",
			Help:    "Duration of batch workflow steps",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3 minutes
		}, []string{"workflow", "step"}),

		WebSocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "radiocaption_websocket_clients",
			Help: "Current number of caption subscribers",
		}),
	}
}

// ChunkRead implements relay.Recorder
func (m *Metrics) ChunkRead(bytes int) {
	m.ChunksRead.Inc()
	m.BytesRead.Add(float64(bytes))
}

// ChunkDropped implements relay.Recorder
func (m *Metrics) ChunkDropped() { m.ChunksDropped.Inc() }

// ChunkDelivered implements relay.Recorder
func (m *Metrics) ChunkDelivered() { m.ChunksDelivered.Inc() }

// QueueDepth implements relay.Recorder
func (m *Metrics) QueueDepth(n int) { m.QueueLength.Set(float64(n)) }

// Stalled implements relay.Recorder
func (m *Metrics) Stalled() { m.Stalls.Inc() }

// SessionStarted records a session entering the running state
func (m *Metrics) SessionStarted() { m.ActiveSessions.Inc() }

// SessionEnded records the outcome and length of a finished session
func (m *Metrics) SessionEnded(outcome string, d time.Duration) {
	m.ActiveSessions.Dec()
	m.SessionsEnded.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// TranscriptEvent counts one recognition result
func (m *Metrics) TranscriptEvent(partial bool) {
	kind := "final"
	if partial {
		kind = "partial"
	}
	m.TranscriptEvents.WithLabelValues(kind).Inc()
}

// StepFinished implements saga.Observer
func (m *Metrics) StepFinished(workflow, step string, state saga.StepState, elapsed time.Duration) {
	m.BatchSteps.WithLabelValues(workflow, step, string(state)).Inc()
	if state != saga.StepStateCompensated {
		m.BatchStepDuration.WithLabelValues(workflow, step).Observe(elapsed.Seconds())
	}
}

var _ relay.Recorder = (*Metrics)(nil)
var _ saga.Observer = (*Metrics)(nil)
