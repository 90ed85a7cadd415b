// Package metrics exposes Prometheus instrumentation for the content hub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lessonhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	structureCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonhub_structure_cache_lookups_total",
		Help: "Structure cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	structureCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonhub_structure_cache_evictions_total",
		Help: "Structure cache evictions by trigger event and result",
	}, []string{"event", "result"})

	progressUpsertInsertRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonhub_progress_upsert_insert_races_total",
		Help: "Count of progress upserts that lost a first-insert race and retried",
	})

	structureResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lessonhub_structure_resolve_duration_seconds",
		Help:    "Duration of structure resolution from the store (cache misses)",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCacheLookup increments the structure-cache lookup counter.
// Result is one of "hit", "miss", "error".
func ObserveCacheLookup(result string) {
	structureCacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheEviction increments the eviction counter for the given
// trigger event and result ("ok" or "error").
func ObserveCacheEviction(event, result string) {
	structureCacheEvictions.WithLabelValues(event, result).Inc()
}

// ObserveUpsertInsertRace records a lost first-insert race on the progress
// upsert path.
func ObserveUpsertInsertRace() {
	progressUpsertInsertRaces.Inc()
}

// ObserveStructureResolve records the duration of a store-backed structure
// resolution.
func ObserveStructureResolve(duration time.Duration) {
	structureResolveDuration.Observe(duration.Seconds())
}
