package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/mw/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/mw-implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before418 := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))
	before200 := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))

	for _, path := range []string{"/mw/1", "/mw/2", "/mw-implicit"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != before418+2 {
		t.Errorf("expected two 418 requests, got %f", val-before418)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val < before200+1 {
		t.Errorf("expected implicit 200 to be counted, got %f", val-before200)
	}
	if n := testutil.CollectAndCount(httpRequestDurationSeconds); n == 0 {
		t.Error("expected request durations to be observed")
	}
}
