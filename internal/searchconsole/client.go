// Package searchconsole reads query performance rows from the Google Search
// Console API using a long-lived OAuth2 refresh token.
package searchconsole

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	searchconsole "google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

const (
	providerName = "search_console"
	dateLayout   = "2006-01-02"
	// maxRowLimit is the API's per-request ceiling.
	maxRowLimit = 25000
)

// Config holds the OAuth client and property the client reads from.
type Config struct {
	SiteURL      string
	ClientID     string
	ClientSecret string
	RefreshToken string
	// Endpoint overrides the API base URL (tests, proxies).
	Endpoint string
	// TokenURL overrides the Google token endpoint.
	TokenURL string
	Timeout  time.Duration
}

// Validate reports missing credentials.
func (c Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"site_url":      c.SiteURL,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"refresh_token": c.RefreshToken,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("search console config missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Client implements blog.KeywordSource.
type Client struct {
	svc     *searchconsole.Service
	siteURL string
	logger  *zap.Logger
}

// New builds an authenticated Search Console client. Access tokens are
// refreshed transparently from the refresh token.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{searchconsole.WebmastersReadonlyScope},
	}
	// token refreshes use a client with the same timeout
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	ts := oauthCfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	httpClient := oauth2.NewClient(tokenCtx, ts)
	httpClient.Timeout = timeout

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	svc, err := searchconsole.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create search console service: %w", err)
	}
	return &Client{svc: svc, siteURL: cfg.SiteURL, logger: logger.Named("searchconsole")}, nil
}

// TopQueries returns query rows for [start, end] ordered by clicks as the API
// reports them.
func (c *Client) TopQueries(ctx context.Context, start, end time.Time, limit int) ([]blog.KeywordRow, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	if limit <= 0 || limit > maxRowLimit {
		limit = maxRowLimit
	}
	req := &searchconsole.SearchAnalyticsQueryRequest{
		StartDate:  start.UTC().Format(dateLayout),
		EndDate:    end.UTC().Format(dateLayout),
		Dimensions: []string{"query"},
		RowLimit:   int64(limit),
		DataState:  "final",
	}
	resp, err := c.svc.Searchanalytics.Query(c.siteURL, req).Context(ctx).Do()
	if err != nil {
		return nil, translateError(err)
	}

	rows := make([]blog.KeywordRow, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		if len(r.Keys) == 0 {
			continue
		}
		rows = append(rows, blog.KeywordRow{
			Query:       r.Keys[0],
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
			CTR:         r.Ctr,
			Position:    r.Position,
		})
	}
	c.logger.Debug("search analytics rows fetched",
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func translateError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Message
		if body == "" {
			body = strings.TrimSpace(gerr.Body)
		}
		return &blog.ProviderError{Provider: providerName, StatusCode: gerr.Code, Body: body}
	}
	return fmt.Errorf("search analytics query: %w", err)
}
