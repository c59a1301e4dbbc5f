// Package ratelimit implements token bucket rate limiting per outbound provider.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/roof-estimate/internal/metrics"
)

// Limiter manages one token bucket per provider name.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	overrides    map[string]rate.Limit
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration. Non-positive rates mean unlimited.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// ProviderRPS overrides DefaultRPS for individual providers.
	ProviderRPS map[string]float64
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	overrides := make(map[string]rate.Limit, len(cfg.ProviderRPS))
	for name, rps := range cfg.ProviderRPS {
		overrides[normalize(name)] = toLimit(rps)
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		overrides:    overrides,
		defaultRate:  toLimit(cfg.DefaultRPS),
		defaultBurst: burst,
	}
}

func toLimit(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

func normalize(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return "unknown"
	}
	return p
}

// Wait blocks until a token is available for provider, respecting the context.
// Waits longer than a millisecond are recorded as rate limit delay.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	name := normalize(provider)
	l.mu.Lock()
	limiter, exists := l.limiters[name]
	if !exists {
		r, ok := l.overrides[name]
		if !ok {
			r = l.defaultRate
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[name] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(name, d)
	}
	return nil
}
