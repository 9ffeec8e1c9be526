package contacts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/fetch"
	"github.com/leadtrail/leadtrail/internal/lead"
)

// Pages worth visiting for contact details, matched against the URL
// path and the anchor text.
var contactKeywords = []string{
	"contact", "about", "team", "staff", "office", "location",
	"phone", "email", "reach", "touch", "connect", "support",
	"help", "customer", "service", "info", "information",
	// Legal pages routinely carry registered addresses and numbers.
	"privacy", "terms", "legal", "policy", "cookies",
	"disclaimer", "imprint", "impressum",
}

// Config controls the contact crawl.
type Config struct {
	MaxPages  int
	Delay     time.Duration
	Timeout   time.Duration
	UserAgent string
}

// Crawler walks an approved domain and extracts contact details.
type Crawler struct {
	cfg     Config
	logger  *zap.Logger
	archive lead.BlobStore
	clock   lead.Clock
}

// Outcome is the result of crawling one domain.
type Outcome struct {
	Phones       []string
	Emails       []string
	Facebook     []string
	Instagram    []string
	LinkedIn     []string
	PagesCrawled int
	Status       lead.ContactStatus
	ErrorMessage string
}

// NewCrawler creates a Crawler. The archive is optional.
func NewCrawler(cfg Config, logger *zap.Logger, archive lead.BlobStore, clock lead.Clock) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Crawler{cfg: cfg, logger: logger, archive: archive, clock: clock}
}

// Extract crawls the homepage plus up to MaxPages-1 contact-relevant
// pages and returns everything found.
func (c *Crawler) Extract(ctx context.Context, domain string) Outcome {
	site := fetch.NewSite(domain, fetch.Options{
		UserAgent: c.cfg.UserAgent,
		Delay:     c.cfg.Delay,
		Timeout:   c.cfg.Timeout,
	}, c.logger)

	homepageURL, homepage, err := site.FetchHomepage(ctx)
	if err != nil {
		return Outcome{
			Status:       lead.ContactNetworkError,
			ErrorMessage: fmt.Sprintf("fetch homepage: %v", err),
		}
	}
	c.archivePage(ctx, domain, homepageURL, homepage)

	extraction := NewExtraction()
	extraction.AddPage(visibleText(homepage), homepage)
	pages := 1

	for _, pageURL := range contactPageLinks(homepageURL, homepage, domain) {
		if pages >= c.cfg.MaxPages {
			break
		}
		if ctx.Err() != nil {
			return c.outcome(extraction, pages, lead.ContactCrawlError, ctx.Err().Error())
		}
		body, err := site.Fetch(ctx, pageURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return c.outcome(extraction, pages, lead.ContactCrawlError, err.Error())
			}
			c.logger.Debug("contact page fetch failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		pages++
		c.archivePage(ctx, domain, pageURL, body)
		extraction.AddPage(visibleText(body), body)
	}

	status := lead.ContactSuccess
	if extraction.Empty() {
		status = lead.ContactNoContactsFound
	}
	return c.outcome(extraction, pages, status, "")
}

func (c *Crawler) outcome(e *Extraction, pages int, status lead.ContactStatus, msg string) Outcome {
	return Outcome{
		Phones:       e.Phones(),
		Emails:       e.Emails(),
		Facebook:     e.Social("facebook"),
		Instagram:    e.Social("instagram"),
		LinkedIn:     e.Social("linkedin"),
		PagesCrawled: pages,
		Status:       status,
		ErrorMessage: msg,
	}
}

func (c *Crawler) archivePage(ctx context.Context, domain, pageURL, body string) {
	if c.archive == nil || body == "" {
		return
	}
	name := archiveObjectName(domain, pageURL, c.clock.Now())
	if err := c.archive.Save(ctx, name, []byte(body)); err != nil {
		c.logger.Warn("archive save failed", zap.String("object", name), zap.Error(err))
	}
}

// visibleText strips scripts and styles so phone matching does not
// pick up analytics snippets.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// contactPageLinks returns the same-domain links whose path or anchor
// text matches a contact keyword, deduplicated in document order.
func contactPageLinks(pageURL, html, domain string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	wantDomain := strings.ToLower(domain)
	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !sameHost(abs, wantDomain) {
			return
		}
		if !matchesContactKeyword(strings.ToLower(abs.Path), strings.ToLower(a.Text())) {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if !seen[link] && strings.TrimSuffix(link, "/") != strings.TrimSuffix(pageURL, "/") {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}

func matchesContactKeyword(path, anchorText string) bool {
	for _, kw := range contactKeywords {
		if strings.Contains(path, kw) || strings.Contains(anchorText, kw) {
			return true
		}
	}
	return false
}

func sameHost(u *url.URL, domain string) bool {
	if strings.TrimPrefix(strings.ToLower(u.Host), "www.") == domain {
		return true
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") == domain
}

var slugStrip = regexp.MustCompile(`\s+`)

// archiveObjectName builds a stable blob path for an archived page.
func archiveObjectName(domain, pageURL string, at time.Time) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(pageURL, ""), "/")
	slug = strings.NewReplacer("https://", "", "http://", "", "/", "_", "?", "_", "&", "_").Replace(slug)
	if len(slug) > 120 {
		slug = slug[:120]
	}
	return path.Join("contacts", domain, at.Format("2006-01-02"), fmt.Sprintf("%s.html", slug))
}
