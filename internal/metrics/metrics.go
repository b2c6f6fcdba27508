package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Prometheus metrics for the delivery tracking core.
var (
	EventsAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_events_appended_total",
			Help: "Total number of delivery events appended to the log",
		},
	)

	RebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_projection_rebuilds_total",
			Help: "Total number of projection rebuilds started",
		},
	)

	RebuildsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_projection_rebuilds_failed_total",
			Help: "Total number of projection rebuilds that failed",
		},
	)

	FailedProjectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_failed_projections_recorded_total",
			Help: "Total number of failed delivery projections recorded",
		},
	)

	NotificationsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_notifications_published_total",
			Help: "Total number of notifications published to the broker",
		},
	)

	NotificationsOutboxedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_notifications_outboxed_total",
			Help: "Total number of notifications diverted to the outbox",
		},
	)

	OrderLookupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_order_lookups_total",
			Help: "Total number of order service lookups",
		},
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_projection_rebuild_duration_seconds",
			Help:    "Duration of successful projection rebuilds",
			Buckets: prometheus.DefBuckets,
		},
	)

	OrderLookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_order_lookup_duration_seconds",
			Help:    "Duration of order service lookups",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the default registry.
func Register() {
	prometheus.MustRegister(EventsAppendedTotal)
	prometheus.MustRegister(RebuildsTotal)
	prometheus.MustRegister(RebuildsFailedTotal)
	prometheus.MustRegister(FailedProjectionsTotal)
	prometheus.MustRegister(NotificationsPublishedTotal)
	prometheus.MustRegister(NotificationsOutboxedTotal)
	prometheus.MustRegister(OrderLookupsTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(OrderLookupDuration)
}

// Serve exposes /metrics on a separate port from the API surface.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()
}
