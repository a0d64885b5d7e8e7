// Package metrics provides Prometheus metrics for the rally service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rally outcomes recorded by RecordRally.
const (
	RallyAccepted        = "accepted"
	RallyDuplicate       = "duplicate"
	RallyBudgetExhausted = "budget_exhausted"
	RallyRejected        = "rejected"
	RallyFailed          = "failed"
)

// Manager owns every metric of the service. A nil *Manager is valid and
// records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	capturesPosted  *prometheus.CounterVec
	rallies         *prometheus.CounterVec
	pointsAwarded   *prometheus.CounterVec
	crowns          *prometheus.CounterVec
	reportCache     *prometheus.CounterVec
	crownSweeps     prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// NewManager creates a metrics manager on a private registry carrying the Go
// runtime and process collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rally",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.capturesPosted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "captures_posted_total",
		Help:      "Captures posted, by moment type",
	}, []string{"moment_type"})

	m.rallies = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rallies_total",
		Help:      "Rally attempts, by outcome",
	}, []string{"result"})

	m.pointsAwarded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "points_awarded_total",
		Help:      "Points appended to the ledger, by entry kind",
	}, []string{"kind"})

	m.crowns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "moment_of_game_crowns_total",
		Help:      "Crowning runs, by whether a bonus was paid",
	}, []string{"bonus_paid"})

	m.reportCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "report_cache_lookups_total",
		Help:      "Report cache lookups, by report and result",
	}, []string{"report", "result"})

	m.crownSweeps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "crown_sweeps_total",
		Help:      "Background crown sweeps run",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Manager) RecordCapturePosted(momentType string) {
	if m == nil {
		return
	}
	m.capturesPosted.WithLabelValues(momentType).Inc()
}

func (m *Manager) RecordRally(result string) {
	if m == nil {
		return
	}
	m.rallies.WithLabelValues(result).Inc()
}

func (m *Manager) RecordPoints(kind string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.pointsAwarded.WithLabelValues(kind).Add(float64(amount))
}

func (m *Manager) RecordCrown(bonusPaid bool) {
	if m == nil {
		return
	}
	m.crowns.WithLabelValues(strconv.FormatBool(bonusPaid)).Inc()
}

func (m *Manager) RecordReportCache(report string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.reportCache.WithLabelValues(report, result).Inc()
}

func (m *Manager) RecordCrownSweep() {
	if m == nil {
		return
	}
	m.crownSweeps.Inc()
}

// RecordHTTPRequest records one served request. route is the matched chi
// pattern so path parameters do not explode label cardinality.
func (m *Manager) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(duration.Seconds())
}
