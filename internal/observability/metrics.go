// Package observability exposes service-wide watermark gauges.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "babylog",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write committed to the store.",
	})
	invalidationAppliedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "babylog",
		Subsystem: "cache",
		Name:      "last_invalidation_applied_timestamp_seconds",
		Help:      "Unix timestamp of the change event most recently applied to the day cache.",
	})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, invalidationAppliedGauge)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordInvalidationApplied updates the invalidation watermark gauge.
func RecordInvalidationApplied(ts time.Time) {
	if ts.IsZero() {
		return
	}
	invalidationAppliedGauge.Set(float64(ts.Unix()))
}
