package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "miner_dashboard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "miner_dashboard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "miner_dashboard",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Polling / source metrics ───────────────────────────────────────────

var (
	PollTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "miner_dashboard",
		Subsystem: "poll",
		Name:      "total",
		Help:      "Total number of fetch attempts per source and outcome.",
	}, []string{"source", "status"})

	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "miner_dashboard",
		Subsystem: "poll",
		Name:      "duration_seconds",
		Help:      "Duration of poll fetch per source in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	PollLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "miner_dashboard",
		Subsystem: "poll",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful poll per source.",
	}, []string{"source"})

	CycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "miner_dashboard",
		Subsystem: "cycle",
		Name:      "total",
		Help:      "Aggregation cycles by result (completed, skipped).",
	}, []string{"result"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "miner_dashboard",
		Subsystem: "cycle",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a full aggregation cycle.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	SnapshotAge = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "miner_dashboard",
		Subsystem: "snapshot",
		Name:      "age_seconds",
		Help:      "Seconds since the latest cycle started, computed at scrape time.",
	}, func() float64 {
		if fn := snapshotAge.Load(); fn != nil {
			return (*fn)()
		}
		return 0
	})
)

var snapshotAge atomic.Pointer[func() float64]

// SetSnapshotAgeFunc installs the function SnapshotAge reports on each scrape.
func SetSnapshotAgeFunc(fn func() float64) {
	snapshotAge.Store(&fn)
}

// ── Business metrics ───────────────────────────────────────────────────

var (
	MetricValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "miner_dashboard",
		Subsystem: "business",
		Name:      "metric_value",
		Help:      "Last known good value of a tracked dashboard metric.",
	}, []string{"source", "metric_name"})

	CredentialUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "miner_dashboard",
		Subsystem: "business",
		Name:      "credential_updates_total",
		Help:      "Number of credential reconfigurations.",
	}, []string{"credential"})
)
