// Package cms reads published blog posts from the headless CMS and caches
// them for the public listing endpoints.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

const (
	providerName = "cms"
	maxErrorBody = 512
)

// ErrPostNotFound is returned by GetPost for an unknown slug.
var ErrPostNotFound = errors.New("post not found")

// Post is a published article as exposed by the CMS.
type Post struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Author      string    `json:"author,omitempty"`
}

// Source lists posts.
type Source interface {
	ListPosts(ctx context.Context) ([]Post, error)
}

// Config locates the CMS.
type Config struct {
	BaseURL  string
	APIToken string
}

// Client implements Source over the CMS REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient validates cfg and returns a Client.
func NewClient(httpClient *http.Client, cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("cms base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: base, token: cfg.APIToken}, nil
}

type listResponse struct {
	Posts []Post `json:"posts"`
}

// ListPosts fetches every published post, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/posts", nil)
	if err != nil {
		return nil, fmt.Errorf("build cms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &blog.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode cms posts: %w", err)
	}
	posts := decoded.Posts
	if posts == nil {
		posts = []Post{}
	}
	SortNewestFirst(posts)
	return posts, nil
}

// SortNewestFirst orders posts by PublishedAt descending, then slug.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].PublishedAt.Equal(posts[j].PublishedAt) {
			return posts[i].PublishedAt.After(posts[j].PublishedAt)
		}
		return posts[i].Slug < posts[j].Slug
	})
}

// GetPost returns the post with slug from src.
func GetPost(ctx context.Context, src Source, slug string) (Post, error) {
	posts, err := src.ListPosts(ctx)
	if err != nil {
		return Post{}, err
	}
	slug = strings.TrimSpace(slug)
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, fmt.Errorf("%w: %q", ErrPostNotFound, slug)
}

var _ Source = (*Client)(nil)
