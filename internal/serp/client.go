// Package serp fetches competitor ranking snapshots from a SerpApi-style
// search results provider.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/textutil"
)

const (
	providerName   = "serp"
	maxErrorBody   = 512
	defaultBaseURL = "https://serpapi.com"
	defaultResults = 10
)

// Config controls the provider endpoint and query defaults.
type Config struct {
	BaseURL  string
	APIKey   string
	Location string
	Results  int
}

// Client implements blog.SERPProvider. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	location   string
	results    int
	now        func() time.Time
}

// New constructs a Client that uses the provided http.Client.
func New(httpClient *http.Client, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("serp api key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse serp base url: %w", err)
	}
	results := cfg.Results
	if results <= 0 {
		results = defaultResults
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		apiKey:     cfg.APIKey,
		location:   cfg.Location,
		results:    results,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

type searchResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
	RelatedQuestions []struct {
		Question string `json:"question"`
	} `json:"related_questions"`
}

// Search returns the organic results and "people also ask" questions for keyword.
func (c *Client) Search(ctx context.Context, keyword string) (blog.SERPSnapshot, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return blog.SERPSnapshot{}, fmt.Errorf("keyword is required")
	}
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", keyword)
	q.Set("num", strconv.Itoa(c.results))
	q.Set("api_key", c.apiKey)
	if c.location != "" {
		q.Set("location", c.location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return blog.SERPSnapshot{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return blog.SERPSnapshot{}, fmt.Errorf("could not send request: %w", c.redact(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return blog.SERPSnapshot{}, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return blog.SERPSnapshot{}, &blog.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       textutil.TruncateBytes(c.scrub(strings.TrimSpace(string(b))), maxErrorBody),
		}
	}

	var sr searchResponse
	if err := json.Unmarshal(b, &sr); err != nil {
		return blog.SERPSnapshot{}, fmt.Errorf("could not decode response: %w", err)
	}
	if sr.Error != "" {
		return blog.SERPSnapshot{}, fmt.Errorf("serp search: %s", sr.Error)
	}

	snapshot := blog.SERPSnapshot{
		Keyword:   keyword,
		FetchedAt: c.now(),
		Organic:   make([]blog.OrganicResult, 0, len(sr.OrganicResults)),
	}
	for i, r := range sr.OrganicResults {
		if r.Link == "" {
			continue
		}
		pos := r.Position
		if pos <= 0 {
			pos = i + 1
		}
		snapshot.Organic = append(snapshot.Organic, blog.OrganicResult{
			Position: pos,
			Title:    strings.TrimSpace(r.Title),
			URL:      r.Link,
			Snippet:  strings.TrimSpace(r.Snippet),
		})
	}
	for _, rq := range sr.RelatedQuestions {
		if q := strings.TrimSpace(rq.Question); q != "" {
			snapshot.Questions = append(snapshot.Questions, q)
		}
	}
	return snapshot, nil
}

// redact strips the api_key query parameter from transport errors, which
// otherwise carry the full request URL.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return errors.New(c.scrub(err.Error()))
	}
	clean := *uerr
	if u, perr := url.Parse(uerr.URL); perr == nil {
		q := u.Query()
		q.Del("api_key")
		u.RawQuery = q.Encode()
		clean.URL = u.String()
	} else {
		clean.URL = c.scrub(uerr.URL)
	}
	return &clean
}

func (c *Client) scrub(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "REDACTED")
}

var _ blog.SERPProvider = (*Client)(nil)
