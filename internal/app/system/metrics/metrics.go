// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	paymentsCreated      prometheus.Counter
	duplicateSlots       prometheus.Counter
	aggregationDuration  *prometheus.HistogramVec
	notificationsSent    *prometheus.CounterVec
	notificationsFailed  *prometheus.CounterVec
	notificationsDropped prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chitfund", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		paymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "payments_created_total",
			Help: "Payment ledger entries inserted.",
		}),
		duplicateSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "payment_duplicate_slots_total",
			Help: "Slot submissions skipped because an entry already existed.",
		}),
		aggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chitfund", Name: "ledger_aggregation_duration_seconds",
			Help:    "Ledger query aggregation latency by operation.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"op"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "notifications_sent_total",
			Help: "Background notifications delivered by job kind.",
		}, []string{"kind"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "notifications_failed_total",
			Help: "Background notifications that failed by job kind.",
		}, []string{"kind"}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chitfund", Name: "notifications_dropped_total",
			Help: "Notifications dropped because the queue was full or stopped.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.paymentsCreated, m.duplicateSlots, m.aggregationDuration,
		m.notificationsSent, m.notificationsFailed, m.notificationsDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Middleware records request count and latency labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) PaymentsCreated(n int) {
	if m != nil && n > 0 {
		m.paymentsCreated.Add(float64(n))
	}
}

func (m *Metrics) DuplicateSlots(n int) {
	if m != nil && n > 0 {
		m.duplicateSlots.Add(float64(n))
	}
}

// ObserveAggregation records how long a ledger aggregation took.
func (m *Metrics) ObserveAggregation(op string, d time.Duration) {
	if m != nil {
		m.aggregationDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// NotificationResult records the outcome of a background job.
func (m *Metrics) NotificationResult(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.notificationsFailed.WithLabelValues(kind).Inc()
		return
	}
	m.notificationsSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationDropped() {
	if m != nil {
		m.notificationsDropped.Inc()
	}
}
