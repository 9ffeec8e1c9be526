// Package fetch provides a polite per-site page fetcher built on
// colly, shared by the crawl-heavy pipeline stages.
package fetch

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Options control one site's collector.
type Options struct {
	UserAgent string
	Delay     time.Duration
	Timeout   time.Duration
}

// Site wraps a per-site colly collector with politeness limits.
// Visits run one at a time, so the last 200 body is the current page.
type Site struct {
	domain    string
	collector *colly.Collector
	logger    *zap.Logger

	mu       sync.Mutex
	lastBody string
}

// NewSite builds a collector scoped to one domain.
func NewSite(domain string, opts Options, logger *zap.Logger) *Site {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	// Colly matches allowed domains against the bare hostname, so a
	// domain carrying a port needs both forms registered.
	hostOnly := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		hostOnly = h
	}
	c := colly.NewCollector(
		colly.AllowedDomains(domain, "www."+domain, hostOnly, "www."+hostOnly),
		colly.UserAgent(opts.UserAgent),
		colly.MaxDepth(1),
	)
	c.AllowURLRevisit = false
	c.SetRequestTimeout(opts.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.Delay,
	}); err != nil {
		logger.Warn("failed to set collector limits", zap.Error(err))
	}

	s := &Site{domain: domain, collector: c, logger: logger}
	c.OnResponse(func(resp *colly.Response) {
		if resp.StatusCode != 200 || len(resp.Body) == 0 {
			return
		}
		s.mu.Lock()
		s.lastBody = string(resp.Body)
		s.mu.Unlock()
	})
	return s
}

// Domain returns the crawl domain the collector is scoped to.
func (s *Site) Domain() string { return s.domain }

// FetchHomepage tries https first, then http.
func (s *Site) FetchHomepage(ctx context.Context) (string, string, error) {
	var lastErr error
	for _, homepage := range []string{"https://" + s.domain, "http://" + s.domain} {
		body, err := s.Fetch(ctx, homepage)
		if err == nil {
			return homepage, body, nil
		}
		lastErr = err
	}
	return "", "", lastErr
}

// Fetch visits one URL synchronously and returns its body.
func (s *Site) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.lastBody = ""
	s.mu.Unlock()

	if err := s.collector.Visit(pageURL); err != nil {
		return "", fmt.Errorf("visit %s: %w", pageURL, err)
	}
	s.collector.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastBody == "" {
		return "", fmt.Errorf("no 200 response for %s", pageURL)
	}
	return s.lastBody, nil
}
