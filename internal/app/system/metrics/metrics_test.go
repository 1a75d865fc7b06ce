package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PaymentsCreated(3)
	m.DuplicateSlots(1)
	m.ObserveAggregation("list", time.Millisecond)
	m.NotificationResult("receipt", errors.New("boom"))
	m.NotificationDropped()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestCounters(t *testing.T) {
	m := New()
	m.PaymentsCreated(2)
	m.PaymentsCreated(0)
	m.DuplicateSlots(1)
	m.NotificationResult("receipt", nil)
	m.NotificationResult("receipt", errors.New("smtp down"))
	m.NotificationResult("receipt", errors.New("smtp down"))

	if got := testutil.ToFloat64(m.paymentsCreated); got != 2 {
		t.Errorf("payments_created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.duplicateSlots); got != 1 {
		t.Errorf("duplicate_slots = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notificationsFailed.WithLabelValues("receipt")); got != 2 {
		t.Errorf("notifications_failed{receipt} = %v, want 2", got)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/payment/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/payment/def", nil))

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/payment/{id}", "404"))
	if got != 2 {
		t.Errorf("http_requests_total{route=/api/payment/{id}} = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "chitfund_http_requests_total") {
		t.Error("exposition missing chitfund_http_requests_total")
	}
}
