// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	CardActionsTotal  *prometheus.CounterVec
	SweepNudgesTotal  prometheus.Counter
	WebhookDuration   *prometheus.HistogramVec
}

// New creates the metrics, registered on reg. Pass nil to use the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaidibot_events_total",
				Help: "Inbound platform events by type",
			},
			[]string{"type"},
		),
		EventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kaidibot_events_dropped_total",
				Help: "Inbound events dropped as malformed or unauthorized",
			},
		),
		CardActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaidibot_card_actions_total",
				Help: "Card button callbacks by action",
			},
			[]string{"action"},
		),
		SweepNudgesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kaidibot_sweep_nudges_total",
				Help: "Overdue work orders nudged by the sweep",
			},
		),
		WebhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kaidibot_webhook_duration_seconds",
				Help:    "Webhook request handling duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}
