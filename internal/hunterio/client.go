// Package hunterio wraps the Hunter.io v2 API for domain email
// searches and account quota checks.
package hunterio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// Config controls the Hunter.io client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Quota is the account's credit balance.
type Quota struct {
	AvailableCredits float64
	TotalAvailable   float64
	TotalUsed        float64
	PlanName         string
	ResetDate        string
}

// Client is a Hunter.io v2 API client.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *zap.Logger
}

// New creates a Hunter.io client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("hunter.api_key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.hunter.io/v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, httpc: &http.Client{Timeout: cfg.Timeout}, log: logger}, nil
}

type accountResponse struct {
	Data struct {
		PlanName  string `json:"plan_name"`
		ResetDate string `json:"reset_date"`
		Requests  struct {
			Credits struct {
				Used      float64 `json:"used"`
				Available float64 `json:"available"`
			} `json:"credits"`
		} `json:"requests"`
	} `json:"data"`
}

type domainSearchResponse struct {
	Data struct {
		Domain string `json:"domain"`
		Emails []struct {
			Value      string `json:"value"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Position   string `json:"position"`
			Confidence int    `json:"confidence"`
		} `json:"emails"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Details string `json:"details"`
	} `json:"errors"`
}

// CheckQuota reads the account's credit balance. Available credits
// are the plan allowance minus what has been used.
func (c *Client) CheckQuota(ctx context.Context) (Quota, error) {
	var resp accountResponse
	if err := c.get(ctx, "/account", nil, &resp); err != nil {
		return Quota{}, err
	}
	credits := resp.Data.Requests.Credits
	return Quota{
		AvailableCredits: credits.Available - credits.Used,
		TotalAvailable:   credits.Available,
		TotalUsed:        credits.Used,
		PlanName:         resp.Data.PlanName,
		ResetDate:        resp.Data.ResetDate,
	}, nil
}

// DomainSearch returns every email Hunter knows for the domain.
func (c *Client) DomainSearch(ctx context.Context, domain string) ([]lead.HunterEmail, error) {
	var resp domainSearchResponse
	params := url.Values{"domain": {domain}}
	if err := c.get(ctx, "/domain-search", params, &resp); err != nil {
		return nil, err
	}
	emails := make([]lead.HunterEmail, 0, len(resp.Data.Emails))
	for _, e := range resp.Data.Emails {
		emails = append(emails, lead.HunterEmail{
			Value:      e.Value,
			FirstName:  e.FirstName,
			LastName:   e.LastName,
			Position:   e.Position,
			Confidence: e.Confidence,
		})
	}
	c.log.Debug("hunter domain search complete",
		zap.String("domain", domain),
		zap.Int("emails", len(emails)),
	)
	return emails, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build hunter request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("hunter request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("hunter %s returned %d: %s", path, resp.StatusCode, apiErr.Errors[0].Details)
		}
		return fmt.Errorf("hunter %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode hunter %s response: %w", path, err)
	}
	return nil
}
