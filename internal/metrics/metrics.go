// Package metrics holds the Prometheus collectors of the API and the
// rotation worker.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "casa"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	balanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "computation_duration_seconds",
			Help:      "Duration of house balance computations, store reads included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	balanceCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "cache_lookups_total",
			Help:      "Balance cache lookups by result.",
		},
		[]string{"result"},
	)

	balanceDiagnostics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "diagnostics_total",
			Help:      "Inconsistent expense records skipped while computing balances.",
		},
	)

	rotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "chores_total",
			Help:      "Chore rotations by outcome (rotated or an error kind).",
		},
		[]string{"outcome"},
	)

	rotationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "batch_duration_seconds",
			Help:      "Duration of rotation batches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "handled_total",
			Help:      "Queue jobs handled by type and result.",
		},
		[]string{"type", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		balanceDuration,
		balanceCache,
		balanceDiagnostics,
		rotations,
		rotationDuration,
		jobs,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled with the matched ServeMux pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeLabel(r.Pattern)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordBalance records one balance computation.
func RecordBalance(duration time.Duration, diagnostics int) {
	balanceDuration.Observe(duration.Seconds())
	if diagnostics > 0 {
		balanceDiagnostics.Add(float64(diagnostics))
	}
}

// RecordBalanceCache records a balance cache hit or miss.
func RecordBalanceCache(hit bool) {
	if hit {
		balanceCache.WithLabelValues("hit").Inc()
		return
	}
	balanceCache.WithLabelValues("miss").Inc()
}

// RecordRotation records the outcome counts of one rotation batch.
func RecordRotation(duration time.Duration, rotated int, failuresByKind map[string]int) {
	rotationDuration.Observe(duration.Seconds())
	rotations.WithLabelValues("rotated").Add(float64(rotated))
	for kind, n := range failuresByKind {
		rotations.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordJob records a handled queue job.
func RecordJob(jobType string, success bool) {
	if jobType == "" {
		jobType = "unknown"
	}
	jobs.WithLabelValues(jobType, strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeLabel strips the method from a "GET /houses/{id}" pattern.
func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		return pattern[i+1:]
	}
	return pattern
}
