package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "babylog",
		Subsystem: "day_cache",
		Name:      "hits_total",
		Help:      "Number of day lookups served from the cache.",
	})

	missCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "babylog",
		Subsystem: "day_cache",
		Name:      "misses_total",
		Help:      "Number of day lookups that required a store round trip.",
	})

	invalidationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "babylog",
		Subsystem: "day_cache",
		Name:      "invalidations_total",
		Help:      "Number of explicit invalidations, labeled by scope (day or subject).",
	}, []string{"scope"})

	entriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "babylog",
		Subsystem: "day_cache",
		Name:      "entries",
		Help:      "Current number of cached day entries.",
	})
)

func init() {
	prometheus.MustRegister(hitCounter, missCounter, invalidationCounter, entriesGauge)
}

func recordHit() {
	hitCounter.Inc()
}

func recordMiss() {
	missCounter.Inc()
}

func recordInvalidation(scope string) {
	invalidationCounter.WithLabelValues(scope).Inc()
}
