package notification

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts receipt dispatch and delivery outcomes
type Metrics struct {
	dispatched *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// NewMetrics creates the notification metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_receipts_dispatched_total",
				Help: "Receipt notifications handed to the task queue, by outcome",
			},
			[]string{"outcome"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_notification_deliveries_total",
				Help: "Notification delivery attempts, by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.deliveries)
	}
	return m
}

func (m *Metrics) dispatch(outcome string) {
	if m != nil {
		m.dispatched.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) delivery(outcome string) {
	if m != nil {
		m.deliveries.WithLabelValues(outcome).Inc()
	}
}
