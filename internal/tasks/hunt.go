package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/serp"
)

const (
	huntTaskName  = "website_hunting"
	huntBatchSize = 3
)

// SERPSearcher runs searches and reports the account quota.
type SERPSearcher interface {
	Search(ctx context.Context, query string) (serp.SearchResponse, error)
	CheckQuota(ctx context.Context) (serp.Status, error)
}

// DomainRanker crawls candidate domains and scores identifier matches.
type DomainRanker interface {
	RankDomains(ctx context.Context, domains []string, companyNumber, vatNumber string) ([]lead.DomainRanking, int)
}

// HuntTask discovers candidate websites through search and ranks them
// with a precision crawl.
type HuntTask struct {
	deps     Deps
	searcher SERPSearcher
	ranker   DomainRanker
	sched    Schedule
}

// NewHuntTask creates the website hunting task.
func NewHuntTask(deps Deps, searcher SERPSearcher, ranker DomainRanker, sched Schedule) *HuntTask {
	return &HuntTask{deps: deps, searcher: searcher, ranker: ranker, sched: sched}
}

func (t *HuntTask) Name() string            { return huntTaskName }
func (t *HuntTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *HuntTask) LockTTL() time.Duration  { return t.sched.ttl(huntLockTTL) }

// Run checks the search quota, then drains one batch. An exhausted
// quota aborts the run before any company is consumed; candidates stay
// unprocessed for the next run.
func (t *HuntTask) Run(ctx context.Context) error {
	status, err := t.searcher.CheckQuota(ctx)
	if err != nil {
		return fmt.Errorf("check search quota: %w", err)
	}
	t.storeCredits(ctx, float64(status.RemainingRequests))
	if status.RemainingRequests <= 0 {
		t.deps.Logger.Warn("search quota exhausted, skipping hunting run")
		return nil
	}

	candidates, err := t.deps.Store.UnprocessedForHunt(ctx, t.sched.batch(huntBatchSize))
	if err != nil {
		return fmt.Errorf("list hunt candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	keywords, err := t.deps.Store.ListSearchKeywords(ctx)
	if err != nil {
		return fmt.Errorf("load search keywords: %w", err)
	}
	excluded, err := t.deps.Store.ListExcludedDomains(ctx)
	if err != nil {
		return fmt.Errorf("load excluded domains: %w", err)
	}
	blacklist, err := t.deps.Store.ListBlacklistedDomains(ctx)
	if err != nil {
		return fmt.Errorf("load blacklisted domains: %w", err)
	}
	t.deps.Logger.Info("website hunting batch starting",
		zap.Int("companies", len(candidates)),
		zap.Int("remaining_requests", status.RemainingRequests),
	)

	for _, candidate := range candidates {
		rec := t.hunt(ctx, candidate, keywords, excluded, blacklist)

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec.ID = id
		rec.CompanyID = candidate.CompanyID
		rec.CreatedAt = t.deps.Clock.Now()

		if err := t.deps.Store.SaveHuntRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(huntTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save hunt record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, huntTaskName, candidate.CompanyID, lead.StageHunt, string(rec.Status))
	}
	return nil
}

// hunt runs discovery and ranking for one company and always returns a
// record to persist.
func (t *HuntTask) hunt(ctx context.Context, c lead.HuntCandidate, keywords, excluded, blacklist []string) lead.HuntRecord {
	identifiers := nonEmpty(c.CompanyName, c.Number, c.VATNumber)
	query, err := serp.BuildQuery(identifiers, keywords, excluded)
	if err != nil {
		return lead.HuntRecord{Status: lead.HuntInvalidIdentifier, ErrorMessage: err.Error()}
	}

	resp, err := t.searcher.Search(ctx, query)
	if err != nil {
		return lead.HuntRecord{Status: searchErrorStatus(err), ErrorMessage: err.Error()}
	}
	if resp.Query.CreditsRemaining != nil {
		t.storeCredits(ctx, *resp.Query.CreditsRemaining)
	}

	domains := serp.ExtractDomains(resp.Organic, blacklist)
	if len(domains) == 0 {
		// Second flavor: swap the keyword phrases for inurl: operators
		// before giving up on the company.
		domains = t.searchV2(ctx, identifiers, keywords, excluded, blacklist)
	}
	if len(domains) == 0 {
		return lead.HuntRecord{Status: lead.HuntNoWebsitesFound}
	}

	rankings, failed := t.ranker.RankDomains(ctx, domains, c.Number, c.VATNumber)
	return lead.HuntRecord{
		CandidateDomains: domains,
		Rankings:         rankings,
		Status:           huntStatus(rankings, failed),
	}
}

// searchV2 retries discovery with the inurl: query variant. Failures
// here never worsen the outcome of the primary search.
func (t *HuntTask) searchV2(ctx context.Context, identifiers, keywords, excluded, blacklist []string) []string {
	query, err := serp.BuildQueryV2(identifiers, keywords, excluded)
	if err != nil {
		return nil
	}
	resp, err := t.searcher.Search(ctx, query)
	if err != nil {
		t.deps.Logger.Debug("inurl search variant failed", zap.Error(err))
		return nil
	}
	if resp.Query.CreditsRemaining != nil {
		t.storeCredits(ctx, *resp.Query.CreditsRemaining)
	}
	return serp.ExtractDomains(resp.Organic, blacklist)
}

// storeCredits persists the latest observed credit balance. Failure to
// record the quota never fails the company being processed.
func (t *HuntTask) storeCredits(ctx context.Context, credits float64) {
	metrics.SetSERPCredits(credits)
	q := lead.SERPQuota{AvailableCredits: credits, LastUpdated: t.deps.Clock.Now()}
	if err := t.deps.Store.SetSERPQuota(ctx, q); err != nil {
		t.deps.Logger.Warn("failed to persist search quota", zap.Error(err))
	}
}

// huntStatus derives the record status from the sorted rankings.
func huntStatus(rankings []lead.DomainRanking, failed int) lead.HuntStatus {
	if len(rankings) == 0 {
		return lead.HuntNoWebsitesFound
	}
	if failed == len(rankings) {
		return lead.HuntCrawlError
	}
	top := rankings[0]
	switch {
	case top.NumberMatched:
		return lead.HuntSuccess
	case top.VATMatched:
		return lead.HuntPartialSuccess
	default:
		return lead.HuntNoMatchesFound
	}
}

// searchErrorStatus maps a search failure to a record status.
func searchErrorStatus(err error) lead.HuntStatus {
	var urlErr *url.Error
	switch {
	case errors.Is(err, serp.ErrRateLimited):
		return lead.HuntQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return lead.HuntTimeoutError
	case errors.As(err, &urlErr):
		if urlErr.Timeout() {
			return lead.HuntTimeoutError
		}
		return lead.HuntNetworkError
	default:
		return lead.HuntAPIError
	}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
