package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the messaging layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Message metrics
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	BytesSent        prometheus.Counter
	SendErrors       *prometheus.CounterVec

	// Mailbox metrics
	Pending *prometheus.GaugeVec

	// Receive metrics
	ReceiveWait      prometheus.Histogram
	BlockedReceivers prometheus.Gauge
	Wakeups          prometheus.Counter
	ReceiveErrors    *prometheus.CounterVec

	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	RankFailures *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	MessagesSent     int64   `json:"messages_sent"`
	MessagesReceived int64   `json:"messages_received"`
	BytesSent        int64   `json:"bytes_sent"`
	Runs             int64   `json:"runs"`
	RankFailures     int64   `json:"rank_failures"`
	TotalWaitSeconds float64 `json:"total_wait_seconds"`
	Blocked          int64   `json:"blocked_receivers"`
}

// NewMetrics creates a metrics collector on its own registry, so several
// collectors can coexist in one process (tests, embedded coordinators).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		MessagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_messages_sent_total",
				Help: "Total number of messages enqueued into a mailbox",
			},
			[]string{"kind"},
		),
		MessagesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_messages_received_total",
				Help: "Total number of messages taken out of a mailbox",
			},
			[]string{"match"},
		),
		BytesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "threadcomm_bytes_sent_total",
				Help: "Total raw bytes copied into messages",
			},
		),
		SendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_send_errors_total",
				Help: "Total number of rejected sends",
			},
			[]string{"error_type"},
		),

		Pending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadcomm_mailbox_pending",
				Help: "Number of messages pending in each rank's mailbox",
			},
			[]string{"rank"},
		),

		ReceiveWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "threadcomm_receive_wait_seconds",
				Help:    "Time a receive spent blocked on its gate",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
		),
		BlockedReceivers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "threadcomm_blocked_receivers",
				Help: "Number of ranks currently blocked in receive",
			},
		),
		Wakeups: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "threadcomm_gate_wakeups_total",
				Help: "Total number of gates opened by a matching send",
			},
		),
		ReceiveErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_receive_errors_total",
				Help: "Total number of receives that ended without a message",
			},
			[]string{"error_type"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_runs_total",
				Help: "Total number of coordinator executions",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "threadcomm_run_duration_seconds",
				Help:    "Wall time of a coordinator execution from spawn to join",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		RankFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_rank_failures_total",
				Help: "Total number of ranks that finished with an error",
			},
			[]string{"reason"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcomm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadcomm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "threadcomm_uptime_seconds",
			Help: "Seconds since the metrics collector was created",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordSend records a message enqueued into a mailbox
func (m *Metrics) RecordSend(kind string, bytes int) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(kind).Inc()
	m.BytesSent.Add(float64(bytes))

	m.mu.Lock()
	m.snapshot.MessagesSent++
	m.snapshot.BytesSent += int64(bytes)
	m.mu.Unlock()
}

// RecordSendError records a rejected send
func (m *Metrics) RecordSendError(errorType string) {
	if m == nil {
		return
	}
	m.SendErrors.WithLabelValues(errorType).Inc()
}

// RecordReceive records a message handed to a receiver
func (m *Metrics) RecordReceive(match string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(match).Inc()

	m.mu.Lock()
	m.snapshot.MessagesReceived++
	m.mu.Unlock()
}

// RecordReceiveError records a receive that gave up
func (m *Metrics) RecordReceiveError(errorType string) {
	if m == nil {
		return
	}
	m.ReceiveErrors.WithLabelValues(errorType).Inc()
}

// SetPending sets the pending message count of a rank's mailbox
func (m *Metrics) SetPending(rank, count int) {
	if m == nil {
		return
	}
	m.Pending.WithLabelValues(strconv.Itoa(rank)).Set(float64(count))
}

// BlockStarted marks a receiver as blocked on its gate
func (m *Metrics) BlockStarted() {
	if m == nil {
		return
	}
	m.BlockedReceivers.Inc()

	m.mu.Lock()
	m.snapshot.Blocked++
	m.mu.Unlock()
}

// BlockEnded marks a blocked receiver as awake and records the wait
func (m *Metrics) BlockEnded(wait time.Duration) {
	if m == nil {
		return
	}
	m.BlockedReceivers.Dec()
	m.ReceiveWait.Observe(wait.Seconds())

	m.mu.Lock()
	m.snapshot.Blocked--
	m.snapshot.TotalWaitSeconds += wait.Seconds()
	m.mu.Unlock()
}

// IncWakeups counts a gate opened by a matching send
func (m *Metrics) IncWakeups() {
	if m == nil {
		return
	}
	m.Wakeups.Inc()
}

// RecordRun records a finished coordinator execution
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Runs++
	m.mu.Unlock()
}

// RecordRankFailure records a rank that finished with an error
func (m *Metrics) RecordRankFailure(reason string) {
	if m == nil {
		return
	}
	m.RankFailures.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.snapshot.RankFailures++
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// GetSnapshot returns a copy of the current snapshot
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns how long the collector has existed
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
