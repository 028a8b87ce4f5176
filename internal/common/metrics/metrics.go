// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_scan_runs_total",
			Help: "Total number of scan passes by outcome",
		},
		[]string{"outcome"},
	)

	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_records_processed_total",
			Help: "Total number of due notification records processed by tier",
		},
		[]string{"tier"},
	)

	PushDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_push_dispatches_total",
			Help: "Total number of push delivery attempts by result",
		},
		[]string{"result"},
	)

	PushDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_push_dispatch_duration_seconds",
			Help: "Duration of individual push deliveries in seconds",
		},
		[]string{"result"},
	)

	PushInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_push_in_flight",
			Help: "Number of push deliveries currently in flight",
		},
	)
)
