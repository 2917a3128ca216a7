// Package observability registers the Prometheus collectors exported on
// /metrics.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salespulse",
		Subsystem: "activity",
		Name:      "events_logged_total",
		Help:      "Activity events logged, by activity type.",
	}, []string{"activity_type"})
	activityQuantity = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salespulse",
		Subsystem: "activity",
		Name:      "quantity_logged_total",
		Help:      "Sum of logged activity quantities, by activity type.",
	}, []string{"activity_type"})
	activityReversed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "salespulse",
		Subsystem: "activity",
		Name:      "events_reversed_total",
		Help:      "Activity events corrected by a compensating entry.",
	})
	rollupMismatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "salespulse",
		Subsystem: "rollup",
		Name:      "audit_mismatches",
		Help:      "Weekly rollup keys that disagreed with their events at the last audit.",
	})
	rollupAuditTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "salespulse",
		Subsystem: "rollup",
		Name:      "last_audit_timestamp_seconds",
		Help:      "Unix timestamp of the most recent rollup audit.",
	})
	metadataResealed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salespulse",
		Subsystem: "crypto",
		Name:      "metadata_resealed_total",
		Help:      "Event metadata values processed by a reseal pass, by outcome.",
	}, []string{"outcome"})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salespulse",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "salespulse",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		activityLogged,
		activityQuantity,
		activityReversed,
		rollupMismatches,
		rollupAuditTimestamp,
		metadataResealed,
		httpRequests,
		httpDuration,
	)
}

// RecordActivityLogged counts one logged event.
func RecordActivityLogged(activityType string, quantity int) {
	activityLogged.WithLabelValues(activityType).Inc()
	if quantity > 0 {
		activityQuantity.WithLabelValues(activityType).Add(float64(quantity))
	}
}

func RecordActivityReversed() {
	activityReversed.Inc()
}

// RecordRollupAudit publishes the outcome of an audit run.
func RecordRollupAudit(mismatches int, at time.Time) {
	rollupMismatches.Set(float64(mismatches))
	rollupAuditTimestamp.Set(float64(at.Unix()))
}

func RecordMetadataReseal(resealed, failed int) {
	metadataResealed.WithLabelValues("resealed").Add(float64(resealed))
	metadataResealed.WithLabelValues("failed").Add(float64(failed))
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
