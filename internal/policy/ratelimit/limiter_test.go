package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: the second call waits ~100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "serp"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "SERP "); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiter_DifferentProviders(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "serp"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "genai"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("provider genai blocked unexpectedly")
	}
}

func TestLimiter_OverrideAndCancel(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0, ProviderRPS: map[string]float64{"GenAI": 0.01}})
	ctx := context.Background()

	// default is unlimited
	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx, "serp"); err != nil {
			t.Fatal(err)
		}
	}

	if err := l.Wait(ctx, "genai"); err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(waitCtx, "genai"); err == nil {
		t.Fatal("expected wait to fail on exhausted bucket")
	}
}
