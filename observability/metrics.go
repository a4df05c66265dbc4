// Package observability exposes relay counters to Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OpenConnections  prometheus.Gauge
	MessagesStored   prometheus.Counter
	RejectedMessages prometheus.Counter
	Deliveries       prometheus.Counter
	DeliveryFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bookchat_open_connections",
			Help: "Number of live relay sessions.",
		}),
		MessagesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookchat_messages_stored_total",
			Help: "Messages accepted and durably stored.",
		}),
		RejectedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookchat_rejected_messages_total",
			Help: "Drafts rejected before persistence.",
		}),
		Deliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookchat_deliveries_total",
			Help: "Stored messages pushed to a live session.",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookchat_delivery_failures_total",
			Help: "Pushes lost after successful persistence.",
		}),
	}
}
