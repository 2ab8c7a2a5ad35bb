// Package metrics exposes Prometheus instrumentation for the notification
// pipeline. Hosts that scrape nothing pay only counter increments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsflare_events_total",
			Help: "Events accepted by the dispatcher, by severity",
		},
		[]string{"level"},
	)

	SuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsflare_suppressed_total",
			Help: "External dispatches suppressed by deduplication",
		},
	)

	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsflare_destination_sends_total",
			Help: "Destination send outcomes",
		},
		[]string{"destination", "status"},
	)

	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsflare_destination_send_duration_seconds",
			Help:    "Duration of destination sends in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"destination"},
	)
)
