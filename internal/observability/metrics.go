package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "med_dispatch", Name: "transitions_total", Help: "Total applied lifecycle transitions"},
		[]string{"from", "to"},
	)
	IllegalTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "illegal_transitions_total", Help: "Total rejected (no-op) transition attempts"})
	AssignmentAlertsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "assignment_alerts_total", Help: "Total new-assignment alerts raised"})
	ArrivalsTotal           = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "arrivals_total", Help: "Total geofence arrival signals"})
	PollFailuresTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "poll_failures_total", Help: "Total failed poll ticks after retries"})
	RouteRefreshes          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "route_refreshes_total", Help: "Total successful route polyline refreshes"})
	RouteRefreshFailures    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "route_refresh_failures_total", Help: "Total failed route polyline refreshes"})
	SnapshotWrites          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "snapshot_writes_total", Help: "Total interruption snapshots written"})
	PositionSamplesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "med_dispatch", Name: "position_samples_total", Help: "Total position samples accepted"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "med_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "med_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
