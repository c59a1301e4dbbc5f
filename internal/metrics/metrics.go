// Package metrics exposes Prometheus collectors for the estimate API and the
// blog automation pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

var (
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec
	estimatesTotal                 *prometheus.CounterVec
	blogJobsTotal                  *prometheus.CounterVec
	blogActiveWorkers              prometheus.Gauge
	providerRequestsTotal          *prometheus.CounterVec
	providerRequestDurationSeconds *prometheus.HistogramVec
	providerRateLimitDelaySeconds  *prometheus.HistogramVec
	robotsFallbacksTotal           *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		estimatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimates_total",
				Help: "Total number of roof estimates computed, labeled by material and region.",
			},
			[]string{"material", "region"},
		)

		blogJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_jobs_total",
				Help: "Total number of blog automation jobs finished, labeled by status.",
			},
			[]string{"status"},
		)

		blogActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "blog_active_workers",
				Help: "Number of workers currently processing a blog job.",
			},
		)

		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Total number of external provider calls, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		providerRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Histogram of external provider call latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		)

		providerRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on the outbound rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		)

		robotsFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "competitor_robots_fallbacks_total",
				Help: "robots.txt fetches answered with allow-all after the host timed out.",
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveEstimate counts one computed estimate.
func ObserveEstimate(material, region string) {
	Init()
	estimatesTotal.WithLabelValues(strings.ToLower(material), strings.ToLower(region)).Inc()
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	Init()
	blogJobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	blogActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	blogActiveWorkers.Dec()
}

// Outcome maps a call error to a provider outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// ObserveProviderRequest records one external provider call.
func ObserveProviderRequest(provider string, err error, duration time.Duration) {
	Init()
	providerRequestsTotal.WithLabelValues(provider, Outcome(err)).Inc()
	providerRequestDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(provider string, duration time.Duration) {
	Init()
	providerRateLimitDelaySeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveRobotsFallback counts a robots.txt fetch that fell back to allow-all.
func ObserveRobotsFallback(host string) {
	Init()
	robotsFallbacksTotal.WithLabelValues(strings.ToLower(host)).Inc()
}
