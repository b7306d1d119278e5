package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP and reconciliation collectors
type Metrics struct {
	requestCounter    *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	webhookOutcomes   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
}

// NewMetrics creates the handler metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_service_requests_total",
				Help: "Total number of requests to payment service",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_service_request_duration_seconds",
				Help:    "Duration of payment service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		webhookOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhooks_total",
				Help: "Provider webhook deliveries by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_status_transitions_total",
				Help: "Applied payment status transitions by source",
			},
			[]string{"source", "from", "to"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestCounter, m.requestLatency, m.webhookOutcomes, m.statusTransitions)
	}
	return m
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (m *Metrics) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next(ww, r)

		m.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.statusCode)).Inc()
		m.requestLatency.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) webhook(provider, outcome string) {
	m.webhookOutcomes.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) transition(source, from, to string) {
	m.statusTransitions.WithLabelValues(source, from, to).Inc()
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}
