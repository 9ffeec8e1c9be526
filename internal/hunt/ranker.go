// Package hunt crawls candidate domains and ranks them by exact
// matches of high-value company identifiers.
package hunt

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/fetch"
	"github.com/leadtrail/leadtrail/internal/lead"
)

// Page categories carry different match weights: a hit on a target
// page (about/contact/legal style URLs) is stronger evidence than a
// hit on an arbitrary page.
const (
	targetPageWeight    = 1.0
	nonTargetPageWeight = 0.75
)

// targetPageKeywords categorize same-domain URLs by path.
var targetPageKeywords = []string{
	"about", "contact", "privacy", "terms", "legal", "disclaimer",
	"cookie", "policy", "company", "information",
}

// Config controls the precision ranker.
type Config struct {
	MaxTargetPages     int
	MaxAdditionalPages int
	MaxConcurrentSites int
	Delay              time.Duration
	Timeout            time.Duration
	UserAgent          string
	// HeadlessFallback re-renders JS-shell homepages with a browser.
	HeadlessFallback bool
}

// Renderer renders a page with a headless browser.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Ranker crawls candidate sites and scores identifier matches.
type Ranker struct {
	cfg      Config
	logger   *zap.Logger
	archive  lead.BlobStore
	renderer Renderer
	clock    lead.Clock
}

// NewRanker creates a Ranker. The archive and renderer are optional.
func NewRanker(cfg Config, logger *zap.Logger, archive lead.BlobStore, renderer Renderer, clock lead.Clock) *Ranker {
	if cfg.MaxTargetPages <= 0 {
		cfg.MaxTargetPages = 3
	}
	if cfg.MaxAdditionalPages <= 0 {
		cfg.MaxAdditionalPages = 6
	}
	if cfg.MaxConcurrentSites <= 0 {
		cfg.MaxConcurrentSites = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Ranker{cfg: cfg, logger: logger, archive: archive, renderer: renderer, clock: clock}
}

// RankDomains crawls every candidate domain concurrently and returns
// rankings sorted by (score, pages crawled) descending. The error
// count reports domains whose homepage could not be fetched at all.
func (r *Ranker) RankDomains(ctx context.Context, domains []string, companyNumber, vatNumber string) ([]lead.DomainRanking, int) {
	rankings := make([]lead.DomainRanking, len(domains))
	var failed int
	var mu sync.Mutex
	sem := make(chan struct{}, r.cfg.MaxConcurrentSites)
	var wg sync.WaitGroup

	for i, domain := range domains {
		wg.Add(1)
		go func(i int, domain string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ranking, err := r.rankSite(ctx, domain, companyNumber, vatNumber)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("site crawl failed", zap.String("domain", domain), zap.Error(err))
				failed++
				rankings[i] = lead.DomainRanking{Domain: domain}
				return
			}
			rankings[i] = ranking
		}(i, domain)
	}
	wg.Wait()

	sort.SliceStable(rankings, func(a, b int) bool {
		if rankings[a].Score != rankings[b].Score {
			return rankings[a].Score > rankings[b].Score
		}
		return rankings[a].PagesCrawled > rankings[b].PagesCrawled
	})
	return rankings, failed
}

// rankSite runs the two-phase precision crawl for one domain.
func (r *Ranker) rankSite(ctx context.Context, domain, companyNumber, vatNumber string) (lead.DomainRanking, error) {
	site := fetch.NewSite(domain, fetch.Options{
		UserAgent: r.cfg.UserAgent,
		Delay:     r.cfg.Delay,
		Timeout:   r.cfg.Timeout,
	}, r.logger)

	homepageURL, homepage, err := site.FetchHomepage(ctx)
	if err != nil {
		return lead.DomainRanking{}, fmt.Errorf("fetch homepage: %w", err)
	}
	if r.cfg.HeadlessFallback && r.renderer != nil && looksLikeJSShell(homepage) {
		if rendered, rerr := r.renderer.Render(ctx, homepageURL); rerr == nil {
			homepage = rendered
		} else {
			r.logger.Warn("headless render failed", zap.String("url", homepageURL), zap.Error(rerr))
		}
	}
	r.archivePage(ctx, domain, homepageURL, homepage)

	links := extractSameDomainLinks(homepageURL, homepage, domain)
	targets, others := categorizePages(links)

	var (
		numberWeight float64
		vatWeight    float64
		pages        = 1 // homepage
	)
	// The homepage itself scores at non-target weight.
	if matchesIdentifier(homepage, companyNumber) {
		numberWeight = nonTargetPageWeight
	}
	if vatNumber != "" && matchesVAT(homepage, vatNumber) {
		vatWeight = nonTargetPageWeight
	}

	crawlPhase := func(urls []string, limit int, weight float64) {
		for _, pageURL := range urls {
			if limit <= 0 || (numberWeight >= weight && (vatNumber == "" || vatWeight >= weight)) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			body, err := site.Fetch(ctx, pageURL)
			if err != nil {
				r.logger.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
				continue
			}
			limit--
			pages++
			r.archivePage(ctx, domain, pageURL, body)
			if numberWeight < weight && matchesIdentifier(body, companyNumber) {
				numberWeight = weight
			}
			if vatNumber != "" && vatWeight < weight && matchesVAT(body, vatNumber) {
				vatWeight = weight
			}
		}
	}

	crawlPhase(targets, r.cfg.MaxTargetPages, targetPageWeight)
	if !(numberWeight > 0 && (vatNumber == "" || vatWeight > 0)) {
		crawlPhase(others, r.cfg.MaxAdditionalPages, nonTargetPageWeight)
	}

	return lead.DomainRanking{
		Domain:        domain,
		Score:         numberWeight + vatWeight,
		NumberMatched: numberWeight > 0,
		VATMatched:    vatWeight > 0,
		PagesCrawled:  pages,
	}, nil
}

func (r *Ranker) archivePage(ctx context.Context, domain, pageURL, body string) {
	if r.archive == nil || body == "" {
		return
	}
	name := archiveObjectName(domain, pageURL, r.clock.Now())
	if err := r.archive.Save(ctx, name, []byte(body)); err != nil {
		r.logger.Warn("archive save failed", zap.String("object", name), zap.Error(err))
	}
}

// categorizePages splits same-domain URLs into target and non-target
// sets by path keywords, preserving order.
func categorizePages(links []string) (targets, others []string) {
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			others = append(others, link)
			continue
		}
		path := strings.ToLower(u.Path)
		isTarget := false
		for _, kw := range targetPageKeywords {
			if strings.Contains(path, kw) {
				isTarget = true
				break
			}
		}
		if isTarget {
			targets = append(targets, link)
		} else {
			others = append(others, link)
		}
	}
	return targets, others
}
