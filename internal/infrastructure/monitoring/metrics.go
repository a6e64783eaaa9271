package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tribunal_bridge"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive        prometheus.Gauge
	SessionsAuthenticated prometheus.Gauge
	SessionsTotal         prometheus.Counter
	HeartbeatEvictions    prometheus.Counter

	// WebSocket metrics
	WSMessages       *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec

	// CAPTCHA metrics
	CaptchaAttempts *prometheus.CounterVec
	CaptchaDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for the health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	ActiveSessions        int64   `json:"activeSessions"`
	AuthenticatedSessions int64   `json:"authenticatedSessions"`
	MessagesReceived      int64   `json:"messagesReceived"`
	DeliveryFailures      int64   `json:"deliveryFailures"`
	CaptchasSolved        int64   `json:"captchasSolved"`
	CaptchasFailed        int64   `json:"captchasFailed"`
	UptimeSeconds         float64 `json:"uptimeSeconds"`
}

// NewMetrics creates metrics on a private registry, so several instances
// can coexist in one process (tests, embedded use).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of open extension sessions",
			},
		),
		SessionsAuthenticated: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_authenticated",
				Help:      "Number of open sessions bound to a user",
			},
		),
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_opened_total",
				Help:      "Total number of extension sessions opened",
			},
		),
		HeartbeatEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeat_evictions_total",
				Help:      "Sessions closed for missing heartbeats",
			},
		),

		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Inbound extension messages by type and action",
			},
			[]string{"type", "action"},
		),
		DeliveryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_failures_total",
				Help:      "Bus requests that found no open session for the user",
			},
			[]string{"channel"},
		),

		CaptchaAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captcha_attempts_total",
				Help:      "CAPTCHA resolution attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		CaptchaDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "captcha_solve_duration_seconds",
				Help:      "Time spent resolving a CAPTCHA",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"provider"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Bridge uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// GetSnapshot returns a copy of the current values.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
