package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors used by the agent. Implements port.Telemetry.
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	CycleDurationSec   prometheus.Histogram
	DeliveryAttempts   *prometheus.CounterVec
	IssueCacheLookups  *prometheus.CounterVec
	IssueFetches       *prometheus.CounterVec
	SnapshotWrites     *prometheus.CounterVec
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_cycles_total",
			Help: "Total number of heartbeat cycles by delivery result.",
		}, []string{"delivered"}),
		CycleDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heartbeat_cycle_duration_seconds",
			Help:    "Heartbeat cycle duration in seconds, collection to persistence.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		DeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_delivery_attempts_total",
			Help: "Total number of delivery attempts by outcome.",
		}, []string{"outcome"}),
		IssueCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_issue_cache_lookups_total",
			Help: "Total number of issue cache lookups by result.",
		}, []string{"result"}),
		IssueFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_issue_fetches_total",
			Help: "Total number of issue tracker fetches by status.",
		}, []string{"status"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_snapshot_writes_total",
			Help: "Total number of snapshot log appends by status.",
		}, []string{"status"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeat_http_requests_total",
			Help: "Total number of HTTP requests served by the agent.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heartbeat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartbeat_http_auth_failures_total",
			Help: "Total number of rejected API keys.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartbeat_http_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.CycleDurationSec,
		m.DeliveryAttempts,
		m.IssueCacheLookups,
		m.IssueFetches,
		m.SnapshotWrites,
		m.RequestsTotal,
		m.RequestDurationSec,
		m.AuthFailures,
		m.RateLimitDropped,
	)

	return m
}

func (m *Metrics) CycleCompleted(duration time.Duration, delivered bool) {
	m.CyclesTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()
	m.CycleDurationSec.Observe(duration.Seconds())
}

func (m *Metrics) DeliveryAttempt(outcome string) {
	m.DeliveryAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IssueCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.IssueCacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IssueFetch(err error) {
	m.IssueFetches.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) SnapshotPersisted(err error) {
	m.SnapshotWrites.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

var knownRoutes = map[string]struct{}{
	"/health":                    {},
	"/metrics":                   {},
	"/ws":                        {},
	"/api/v1/status":             {},
	"/api/v1/project/completion": {},
	"/api/v1/project/issues":     {},
	"/api/v1/agents/activity":    {},
	"/api/v1/heartbeat":          {},
	"/api/v1/snapshots":          {},
}

// normalizeRoute keeps label cardinality bounded: legacy aliases fold into
// their /api/v1 form and unknown paths collapse into one bucket.
func normalizeRoute(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	if _, ok := knownRoutes["/api/v1"+path]; ok && strings.HasPrefix(path, "/") {
		return "/api/v1" + path
	}
	if strings.HasPrefix(path, "/api/") {
		return "/api/*"
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
