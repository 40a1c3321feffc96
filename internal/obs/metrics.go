package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pantry"

// Registry holds every collector the service exports.
var Registry = prometheus.NewRegistry()

var (
	// Snapshots counts snapshot attempts by result.
	Snapshots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_total",
		Help:      "Inventory snapshot attempts by result.",
	}, []string{"result"})

	// SnapshotDuration observes end-to-end snapshot latency.
	SnapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_duration_seconds",
		Help:      "Time to build one inventory snapshot.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// PriceLookups counts individual price lookups by result.
	PriceLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_lookups_total",
		Help:      "Per-product price lookups by result.",
	}, []string{"result"})

	// ConstraintUpdates counts constraint writes by result.
	ConstraintUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "constraint_updates_total",
		Help:      "Constraint update attempts by result.",
	}, []string{"result"})

	// ConstraintFileEvents counts external changes seen on the constraint file.
	ConstraintFileEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "constraint_file_events_total",
		Help:      "Constraint file changes observed by the watcher.",
	}, []string{"kind"})

	// HTTPRequests counts served requests by method and status code.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Snapshots,
		SnapshotDuration,
		PriceLookups,
		ConstraintUpdates,
		ConstraintFileEvents,
		HTTPRequests,
	)
}

// MetricsHandler serves Registry in the Prometheus exposition format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
