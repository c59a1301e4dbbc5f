package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if httpRequestsTotal == nil || estimatesTotal == nil || blogJobsTotal == nil ||
		providerRequestsTotal == nil || providerRateLimitDelaySeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveEstimate(t *testing.T) {
	before := testutil.ToFloat64(estimatesTotal.WithLabelValues("slate", "pacific"))
	ObserveEstimate("Slate", "PACIFIC")
	if got := testutil.ToFloat64(estimatesTotal.WithLabelValues("slate", "pacific")); got != before+1 {
		t.Fatalf("estimates_total = %f, want %f", got, before+1)
	}
}

func TestObserveProviderRequest(t *testing.T) {
	Init()
	ObserveProviderRequest("serp-test", nil, 10*time.Millisecond)
	ObserveProviderRequest("serp-test", errors.New("boom"), time.Millisecond)
	ObserveProviderRequest("serp-test", fmt.Errorf("wrapped: %w", context.Canceled), time.Millisecond)

	for _, outcome := range []string{OutcomeSuccess, OutcomeError, OutcomeCanceled} {
		if got := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("serp-test", outcome)); got != 1 {
			t.Errorf("provider_requests_total{outcome=%q} = %f, want 1", outcome, got)
		}
	}
}

func TestJobAndWorkerMetrics(t *testing.T) {
	Init()
	before := testutil.ToFloat64(blogJobsTotal.WithLabelValues("succeeded"))
	ObserveJob("succeeded")
	if got := testutil.ToFloat64(blogJobsTotal.WithLabelValues("succeeded")); got != before+1 {
		t.Fatalf("blog_jobs_total = %f", got)
	}

	base := testutil.ToFloat64(blogActiveWorkers)
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if got := testutil.ToFloat64(blogActiveWorkers); got != base+1 {
		t.Fatalf("blog_active_workers = %f, want %f", got, base+1)
	}
	DecActiveWorkers()
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("genai-test", 250*time.Millisecond)
	if n := testutil.CollectAndCount(providerRateLimitDelaySeconds); n == 0 {
		t.Fatal("expected rate limit histogram to have series")
	}
}

func TestObserveRobotsFallback(t *testing.T) {
	ObserveRobotsFallback("Slow.Example")
	ObserveRobotsFallback("slow.example")
	if got := testutil.ToFloat64(robotsFallbacksTotal.WithLabelValues("slow.example")); got != 2 {
		t.Fatalf("expected 2 fallbacks for slow.example, got %v", got)
	}
}
