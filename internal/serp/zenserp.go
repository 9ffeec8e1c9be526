// Package serp wraps the ZenSERP search API used for website hunting
// and LinkedIn discovery.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minRequestGap spaces requests out; ZenSERP throttles bursts.
const minRequestGap = time.Second

// Sentinel errors callers branch on when deriving task statuses.
var (
	ErrAuth        = errors.New("serp authentication failed")
	ErrRateLimited = errors.New("serp rate limit exceeded")
)

// Config controls the ZenSERP client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchResponse is the subset of the ZenSERP payload the pipeline uses.
type SearchResponse struct {
	Organic []OrganicResult `json:"organic"`
	Query   struct {
		CreditsRemaining *float64 `json:"credits_remaining"`
	} `json:"query"`
}

// Status reports the account's remaining request quota.
type Status struct {
	RemainingRequests int `json:"remaining_requests"`
}

// Client is a rate-spaced ZenSERP API client.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// New creates a ZenSERP client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serp.api_key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://app.zenserp.com/api/v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   logger,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
		now: time.Now,
	}, nil
}

// CheckQuota returns the remaining request quota from /status.
func (c *Client) CheckQuota(ctx context.Context) (Status, error) {
	var status Status
	if err := c.get(ctx, "/status", nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Search runs one query through /search.
func (c *Client) Search(ctx context.Context, query string) (SearchResponse, error) {
	var resp SearchResponse
	params := url.Values{"q": {query}}
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return SearchResponse{}, err
	}
	c.log.Debug("serp search complete",
		zap.String("query", query),
		zap.Int("organic_results", len(resp.Organic)),
	)
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build serp request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("serp request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (%d)", ErrAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("serp %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode serp %s response: %w", path, err)
	}
	return nil
}

// pace enforces the minimum gap between consecutive requests.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	elapsed := c.now().Sub(c.lastRequest)
	var wait time.Duration
	if !c.lastRequest.IsZero() && elapsed < minRequestGap {
		wait = minRequestGap - elapsed
	}
	c.lastRequest = c.now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		return c.sleep(ctx, wait)
	}
	return nil
}
