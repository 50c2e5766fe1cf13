package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Middleware(mux)

	for _, path := range []string{"/orders/1", "/orders/2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /orders/{id}", "404"))
	if got != 2 {
		t.Fatalf("expected 2 requests for the pattern, got %v", got)
	}
}

func TestOrderCounters(t *testing.T) {
	before := testutil.ToFloat64(ordersCreated)
	OrderCreated()
	if got := testutil.ToFloat64(ordersCreated); got != before+1 {
		t.Fatalf("orders created = %v, want %v", got, before+1)
	}

	StatusChanged("ready")
	if got := testutil.ToFloat64(statusChanges.WithLabelValues("ready")); got != 1 {
		t.Fatalf("status changes = %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	OrderCreated()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "laundry_orders_created_total") {
		t.Fatal("metrics output is missing laundry_orders_created_total")
	}
}
