package cms

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

// CachedSource serves posts from memory for ttl and falls back to the last
// good listing when a refresh fails.
type CachedSource struct {
	src    Source
	ttl    time.Duration
	clock  blog.Clock
	logger *zap.Logger

	mu        sync.Mutex
	posts     []Post
	fetchedAt time.Time
	loaded    bool
}

// NewCachedSource wraps src. A non-positive ttl disables caching.
func NewCachedSource(src Source, ttl time.Duration, clock blog.Clock, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{src: src, ttl: ttl, clock: clock, logger: logger.Named("cms_cache")}
}

// ListPosts returns a copy of the cached listing, refreshing it when stale.
func (c *CachedSource) ListPosts(ctx context.Context) ([]Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.loaded && c.ttl > 0 && now.Sub(c.fetchedAt) < c.ttl {
		return copyPosts(c.posts), nil
	}

	posts, err := c.src.ListPosts(ctx)
	if err != nil {
		if c.loaded {
			c.logger.Warn("cms refresh failed, serving stale posts",
				zap.Error(err),
				zap.Duration("age", now.Sub(c.fetchedAt)),
			)
			return copyPosts(c.posts), nil
		}
		return nil, err
	}
	c.posts = copyPosts(posts)
	c.fetchedAt = now
	c.loaded = true
	return copyPosts(posts), nil
}

func copyPosts(in []Post) []Post {
	out := make([]Post, len(in))
	copy(out, in)
	return out
}

var _ Source = (*CachedSource)(nil)
