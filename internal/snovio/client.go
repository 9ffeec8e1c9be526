// Package snovio wraps the Snov.io v1 API for extracting verified
// emails from approved LinkedIn profiles.
package snovio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// tokenSlack refreshes the OAuth token a little before Snov expires it.
const tokenSlack = 30 * time.Second

// Config controls the Snov.io client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client is a Snov.io v1 API client using OAuth2 client credentials.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *zap.Logger
	now   func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Snov.io client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("snov.client_id and snov.client_secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.snov.io/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   logger,
		now:   time.Now,
	}, nil
}

// accessToken returns a cached OAuth token, refreshing when stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.postForm(ctx, "/oauth/access_token", form, &resp); err != nil {
		return "", fmt.Errorf("snov authentication: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("snov authentication: no access token in response")
	}
	c.token = resp.AccessToken
	expiry := time.Hour
	if resp.ExpiresIn > 0 {
		expiry = time.Duration(resp.ExpiresIn) * time.Second
	}
	c.tokenExpiry = c.now().Add(expiry - tokenSlack)
	return c.token, nil
}

// CheckBalance returns the account's credit balance.
func (c *Client) CheckBalance(ctx context.Context) (float64, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/get-balance", nil)
	if err != nil {
		return 0, fmt.Errorf("build snov request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("snov get-balance: %w", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // read-only body
	if httpResp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("snov get-balance returned %d", httpResp.StatusCode)
	}

	// The balance comes back as a string, e.g. "1000.00".
	var resp struct {
		Data struct {
			Balance string `json:"balance"`
		} `json:"data"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return 0, fmt.Errorf("decode snov balance: %w", err)
	}
	balance, err := strconv.ParseFloat(resp.Data.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snov balance %q: %w", resp.Data.Balance, err)
	}
	return balance, nil
}

// ProcessProfile runs the two-step extraction for one LinkedIn URL:
// queue it with add-url-for-search, then pull the processed emails.
// API failures come back in the profile's status, not as an error.
func (c *Client) ProcessProfile(ctx context.Context, profileURL string) lead.SnovProfile {
	if err := c.addURLForSearch(ctx, profileURL); err != nil {
		c.log.Warn("snov add-url-for-search failed", zap.String("url", profileURL), zap.Error(err))
		return lead.SnovProfile{
			ProfileURL: profileURL,
			Status:     lead.SnovProfileAPIError,
			Message:    err.Error(),
		}
	}
	return c.getEmailsFromURL(ctx, profileURL)
}

func (c *Client) addURLForSearch(ctx context.Context, profileURL string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	form := url.Values{"access_token": {token}, "url": {profileURL}}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.postForm(ctx, "/add-url-for-search", form, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("snov rejected url: %s", orUnknown(resp.Message))
	}
	return nil
}

type profileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		CurrentJob []struct {
			Position string `json:"position"`
		} `json:"currentJob"`
		PreviousJob []struct {
			Position string `json:"position"`
		} `json:"previousJob"`
		Emails []struct {
			Email  string `json:"email"`
			Status string `json:"status"`
		} `json:"emails"`
	} `json:"data"`
}

func (c *Client) getEmailsFromURL(ctx context.Context, profileURL string) lead.SnovProfile {
	profile := lead.SnovProfile{ProfileURL: profileURL}

	token, err := c.accessToken(ctx)
	if err != nil {
		profile.Status = lead.SnovProfileAPIError
		profile.Message = err.Error()
		return profile
	}
	form := url.Values{"access_token": {token}, "url": {profileURL}}
	var resp profileResponse
	if err := c.postForm(ctx, "/get-emails-from-url", form, &resp); err != nil {
		profile.Status = lead.SnovProfileAPIError
		profile.Message = err.Error()
		return profile
	}
	if !resp.Success {
		profile.Status = lead.SnovProfileAPIError
		profile.Message = orUnknown(resp.Message)
		return profile
	}

	profile.Position = extractPosition(resp)
	for _, e := range resp.Data.Emails {
		if e.Email == "" {
			continue
		}
		status := e.Status
		if status == "" {
			status = "unknown"
		}
		profile.Emails = append(profile.Emails, fmt.Sprintf("%s (%s)", e.Email, status))
	}
	if len(profile.Emails) > 0 {
		profile.Status = lead.SnovProfileSuccess
	} else {
		profile.Status = lead.SnovProfileNotFound
		profile.Message = "no emails found for profile"
	}
	return profile
}

// extractPosition prefers the current job; a previous one is tagged.
func extractPosition(resp profileResponse) string {
	if len(resp.Data.CurrentJob) > 0 && resp.Data.CurrentJob[0].Position != "" {
		return resp.Data.CurrentJob[0].Position
	}
	if len(resp.Data.PreviousJob) > 0 && resp.Data.PreviousJob[0].Position != "" {
		return resp.Data.PreviousJob[0].Position + " (Previous)"
	}
	return ""
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build snov request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("snov request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snov %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode snov %s response: %w", path, err)
	}
	return nil
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown API error"
	}
	return msg
}
