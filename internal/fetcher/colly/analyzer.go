// Package collyfetcher fetches competitor pages with gocolly and summarizes
// their outline for the draft prompt.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/textutil"
)

const (
	providerName       = "competitor"
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 4 << 20
	maxHeadings        = 40
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodySize   int
}

// Analyzer implements blog.PageAnalyzer using the Colly collector.
type Analyzer struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// New builds an Analyzer.
func New(cfg Config) *Analyzer {
	return newWithTransport(cfg, newHTTPTransport())
}

func newWithTransport(cfg Config, base http.RoundTripper) *Analyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	transport := newRobotsAwareTransport(base)
	c.WithTransport(transport)
	return &Analyzer{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Analyze fetches url and returns its title, H2/H3 outline and visible word count.
func (a *Analyzer) Analyze(ctx context.Context, url string) (blog.CompetitorPage, error) {
	page := blog.CompetitorPage{URL: url, Headings: []string{}}
	var fetchErr error
	collector := a.buildCollector()
	a.configureCollectorHooks(collector, &page, &fetchErr)

	if err := a.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return blog.CompetitorPage{}, err
	}
	return page, nil
}

func (a *Analyzer) buildCollector() *colly.Collector {
	collector := a.baseCollector.Clone()
	if a.cfg.UserAgent != "" {
		collector.UserAgent = a.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !a.cfg.RespectRobots
	collector.MaxBodySize = a.cfg.MaxBodySize
	collector.SetRequestTimeout(a.cfg.Timeout)
	collector.WithTransport(a.transport)
	return collector
}

func (a *Analyzer) configureCollectorHooks(hooks collectorHooks, page *blog.CompetitorPage, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		page.URL = r.Request.URL.String()
		page.StatusCode = r.StatusCode
	})

	hooks.OnHTML("head > title", func(e *colly.HTMLElement) {
		if page.Title == "" {
			page.Title = collapse(e.Text)
		}
	})

	hooks.OnHTML("h2, h3", func(e *colly.HTMLElement) {
		if len(page.Headings) >= maxHeadings {
			return
		}
		if text := collapse(e.Text); text != "" {
			page.Headings = append(page.Headings, text)
		}
	})

	hooks.OnHTML("body", func(e *colly.HTMLElement) {
		body := e.DOM.Clone()
		body.Find("script, style, noscript, template, svg").Remove()
		page.WordCount = textutil.WordCount(body.Text())
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			*fetchErr = &blog.ProviderError{Provider: providerName, StatusCode: r.StatusCode}
			return
		}
		*fetchErr = err
	})
}

func (a *Analyzer) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if errors.Is(err, colly.ErrRobotsTxtBlocked) {
			return fmt.Errorf("%w: %w", blog.ErrRobotsDisallowed, err)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

var _ blog.PageAnalyzer = (*Analyzer)(nil)
