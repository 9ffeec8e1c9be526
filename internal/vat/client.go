// Package vat resolves UK VAT numbers by searching a public VAT
// register through a rotating proxy.
package vat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

const defaultMaxRetries = 3

// Config controls the VAT lookup client.
type Config struct {
	SearchURL string
	// ProxyURL routes every search through a rotating proxy; the
	// register soft-blocks repeated direct traffic.
	ProxyURL   string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// Result is the outcome of one VAT lookup. SearchTerms records every
// variation tried, for the audit row.
type Result struct {
	Status      lead.VATStatus
	VATNumber   string
	MatchedName string
	SearchTerms []string
	Notes       string
	ProxyUsed   bool
}

// Client searches the VAT register with company-name variations.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	newSession func() *http.Client
}

// New creates a VAT client. The proxy URL is required.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.SearchURL == "" {
		return nil, fmt.Errorf("vat.search_url is required")
	}
	if cfg.ProxyURL == "" {
		return nil, fmt.Errorf("vat.proxy_url is required")
	}
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse vat.proxy_url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	c := &Client{cfg: cfg, logger: logger}
	// A fresh session per attempt gets a fresh proxy exit and an empty
	// cookie jar, which is what shakes off soft blocks.
	c.newSession = func() *http.Client {
		jar, _ := cookiejar.New(nil) //nolint:errcheck // no options, cannot fail
		return &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}
	}
	return c, nil
}

// Lookup searches the register for a company's VAT number, trying name
// variations in order until one yields a match.
func (c *Client) Lookup(ctx context.Context, companyName string) Result {
	variations := NameVariations(companyName)
	if len(variations) == 0 {
		return Result{
			Status: lead.VATInvalidCompanyName,
			Notes:  "company name cannot be empty",
		}
	}

	var (
		tried        []string
		sawBlock     bool
		sawNoMatch   bool
		sawNetworkOK bool
	)

	for _, term := range variations {
		tried = append(tried, term)
		kind, rows, err := c.searchWithRetries(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Status: lead.VATNetworkError, SearchTerms: tried, Notes: ctx.Err().Error(), ProxyUsed: true}
			}
			c.logger.Warn("vat search failed", zap.String("term", term), zap.Error(err))
			continue
		}
		sawNetworkOK = true

		switch kind {
		case responseSoftBlock:
			sawBlock = true
		case responseNotFound, responseUnknown:
			// Try the next variation.
		case responseResults:
			row, ok := matchRow(rows, term)
			if !ok {
				sawNoMatch = true
				continue
			}
			if !ValidVATNumber(row.VATNumber) {
				return Result{
					Status:      lead.VATParsingError,
					SearchTerms: tried,
					Notes:       fmt.Sprintf("matched VAT number %q is not in GB format", row.VATNumber),
					ProxyUsed:   true,
				}
			}
			return Result{
				Status:      lead.VATSuccess,
				VATNumber:   strings.ReplaceAll(strings.ToUpper(row.VATNumber), " ", ""),
				MatchedName: row.CompanyName,
				SearchTerms: tried,
				Notes:       fmt.Sprintf("found using search term %q", term),
				ProxyUsed:   true,
			}
		}
	}

	res := Result{SearchTerms: tried, ProxyUsed: true}
	switch {
	case sawNoMatch:
		res.Status = lead.VATMultipleResultsNoMatch
		res.Notes = "results found but none matched the company name exactly"
	case sawBlock:
		res.Status = lead.VATServiceBlocked
		res.Notes = "register soft-blocked every attempt"
	case !sawNetworkOK:
		res.Status = lead.VATNetworkError
		res.Notes = "all search requests failed"
	default:
		res.Status = lead.VATNotFound
		res.Notes = fmt.Sprintf("no VAT registration found after %d variations", len(tried))
	}
	return res
}

// searchWithRetries posts one search term, retrying soft blocks and
// transport errors with a fresh session each time.
func (c *Client) searchWithRetries(ctx context.Context, term string) (responseKind, []tableRow, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return responseUnknown, nil, ctx.Err()
		}
		html, err := c.post(ctx, c.newSession(), term)
		if err != nil {
			lastErr = err
			continue
		}
		kind := classifyResponse(html)
		if kind == responseSoftBlock && attempt < c.cfg.MaxRetries-1 {
			c.logger.Debug("soft block, rotating session", zap.String("term", term), zap.Int("attempt", attempt+1))
			continue
		}
		if kind != responseResults {
			return kind, nil, nil
		}
		rows, err := parseResults(html)
		if err != nil {
			return responseUnknown, nil, err
		}
		return kind, rows, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("exhausted %d attempts for %q", c.cfg.MaxRetries, term)
	}
	return responseUnknown, nil, lastErr
}

func (c *Client) post(ctx context.Context, session *http.Client, term string) (string, error) {
	form := url.Values{"CompanyName": {term}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SearchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("vat search request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vat search returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read vat search response: %w", err)
	}
	return string(body), nil
}
