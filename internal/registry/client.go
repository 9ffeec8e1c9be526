// Package registry looks up UK companies against the Companies House API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

const (
	// Companies House allows 600 requests per rolling 5 minute window.
	rateLimitRequests = 600
	rateLimitWindow   = 5 * time.Minute

	// A 429 means the server-side window disagrees with ours; back off
	// hard before the single retry.
	tooManyRequestsBackoff = 60 * time.Second

	maxKeyOfficers = 5
)

// Config controls the registry client.
type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// Result is the outcome of one company lookup. A non-success status
// carries a human-readable message; the caller persists both either way.
type Result struct {
	Status  lead.RegistryStatus
	Profile lead.RegistryProfile
	Message string
}

// Client calls the Companies House API with client-side rate limiting.
type Client struct {
	cfg     Config
	httpc   *http.Client
	logger  *zap.Logger
	limiter *windowLimiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a registry client. The API key is used as the basic auth
// username with an empty password, per the Companies House scheme.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("registry.api_key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.company-information.service.gov.uk"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		limiter: newWindowLimiter(rateLimitRequests, rateLimitWindow),
		sleep:   sleepCtx,
	}, nil
}

// NormalizeCompanyNumber strips non-digits and left-pads to 8 digits.
// Numbers that are empty or longer than 8 digits after stripping are
// rejected.
func NormalizeCompanyNumber(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return "", fmt.Errorf("company number %q contains no digits", raw)
	}
	if len(d) > 8 {
		return "", fmt.Errorf("company number %q has more than 8 digits", raw)
	}
	return strings.Repeat("0", 8-len(d)) + d, nil
}

// Lookup fetches the company profile, registered office address and
// officers for one company number and extracts an outreach profile.
func (c *Client) Lookup(ctx context.Context, rawNumber string) Result {
	number, err := NormalizeCompanyNumber(rawNumber)
	if err != nil {
		return Result{Status: lead.RegistryInvalidCompanyNumber, Message: err.Error()}
	}

	var profile companyProfileResponse
	status, err := c.getJSON(ctx, "/company/"+number, &profile)
	switch {
	case err != nil:
		return Result{Status: lead.RegistryAPIError, Message: err.Error()}
	case status == http.StatusNotFound:
		return Result{Status: lead.RegistryCompanyNotFound, Message: fmt.Sprintf("company %s not found", number)}
	case status == http.StatusTooManyRequests:
		return Result{Status: lead.RegistryRateLimitError, Message: "rate limited after retry"}
	case status != http.StatusOK:
		return Result{Status: lead.RegistryAPIError, Message: fmt.Sprintf("profile endpoint returned %d", status)}
	}

	// Address and officers are best-effort; the profile alone is enough
	// for a SUCCESS row.
	var address addressResponse
	if status, err := c.getJSON(ctx, "/company/"+number+"/registered-office-address", &address); err != nil || status != http.StatusOK {
		c.logger.Warn("registered office address unavailable",
			zap.String("company_number", number),
			zap.Int("status", status),
			zap.Error(err),
		)
		address = addressResponse{}
	}

	var officers officersResponse
	if status, err := c.getJSON(ctx, "/company/"+number+"/officers", &officers); err != nil || status != http.StatusOK {
		c.logger.Warn("officers unavailable",
			zap.String("company_number", number),
			zap.Int("status", status),
			zap.Error(err),
		)
		officers = officersResponse{}
	}

	extracted, err := extractProfile(profile, address, officers)
	if err != nil {
		return Result{Status: lead.RegistryExtractionError, Message: err.Error()}
	}
	return Result{Status: lead.RegistrySuccess, Profile: extracted}
}

// getJSON performs a rate-limited GET and decodes the body on 200.
// A 429 sleeps and retries once; the retry's status is returned as-is.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		status, err := c.doGet(ctx, path, out)
		if err != nil {
			return 0, err
		}
		if status == http.StatusTooManyRequests && attempt == 0 {
			c.logger.Warn("registry rate limited, backing off",
				zap.String("path", path),
				zap.Duration("backoff", tooManyRequestsBackoff),
			)
			if err := c.sleep(ctx, tooManyRequestsBackoff); err != nil {
				return 0, err
			}
			continue
		}
		return status, nil
	}
}

func (c *Client) doGet(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.APIKey, "")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("registry request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
