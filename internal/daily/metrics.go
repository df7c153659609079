package daily

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "babylog",
		Subsystem: "fetcher",
		Name:      "store_query_duration_seconds",
		Help:      "Time spent in the overlap query for a single day window.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	fetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "babylog",
		Subsystem: "fetcher",
		Name:      "store_errors_total",
		Help:      "Number of day fetches that failed because the store query failed.",
	})
)

func init() {
	prometheus.MustRegister(fetchDuration, fetchErrors)
}

func observeFetch(start time.Time, err error) {
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.Inc()
	}
}
