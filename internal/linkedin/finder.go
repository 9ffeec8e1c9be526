// Package linkedin discovers company pages and employee profiles on
// LinkedIn through targeted search queries.
package linkedin

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/serp"
)

// Result scoring: the description mentioning the company's own domain
// is much stronger evidence than a name collision.
const (
	nameMatchScore   = 1
	domainMatchScore = 2
)

// Searcher is the slice of the SERP client the finder needs.
type Searcher interface {
	Search(ctx context.Context, query string) (serp.SearchResponse, error)
}

// Finder runs LinkedIn discovery for one company at a time.
type Finder struct {
	searcher Searcher
	logger   *zap.Logger
}

// Result is the outcome of one discovery attempt.
type Result struct {
	Query            string
	CompanyPages     []lead.ScoredLink
	EmployeeProfiles []lead.ScoredLink
	CreditsRemaining *float64
	Status           lead.LinkedInStatus
	ErrorMessage     string
}

// NewFinder creates a Finder.
func NewFinder(searcher Searcher, logger *zap.Logger) *Finder {
	return &Finder{searcher: searcher, logger: logger}
}

// Discover searches LinkedIn for the company and splits the scored
// hits into company pages and employee profiles.
func (f *Finder) Discover(ctx context.Context, companyName, approvedDomain string) Result {
	if strings.TrimSpace(companyName) == "" {
		return Result{Status: lead.LinkedInAPIError, ErrorMessage: "company name is empty"}
	}

	query := serp.BuildLinkedInQuery(companyName, approvedDomain)
	resp, err := f.searcher.Search(ctx, query)
	if err != nil {
		return Result{Query: query, Status: statusForError(err), ErrorMessage: err.Error()}
	}

	companies, employees := scoreResults(resp.Organic, companyName, approvedDomain)
	result := Result{
		Query:            query,
		CompanyPages:     companies,
		EmployeeProfiles: employees,
		CreditsRemaining: resp.Query.CreditsRemaining,
	}
	switch {
	case len(companies) == 0 && len(employees) == 0:
		result.Status = lead.LinkedInNoResultsFound
	case len(companies) > 0 && len(employees) > 0:
		result.Status = lead.LinkedInSuccess
	default:
		result.Status = lead.LinkedInPartialSuccess
	}
	f.logger.Debug("linkedin discovery complete",
		zap.String("company", companyName),
		zap.Int("company_pages", len(companies)),
		zap.Int("employee_profiles", len(employees)),
		zap.String("status", string(result.Status)),
	)
	return result
}

func statusForError(err error) lead.LinkedInStatus {
	switch {
	case errors.Is(err, serp.ErrRateLimited):
		return lead.LinkedInQuotaExceeded
	case errors.Is(err, serp.ErrAuth):
		return lead.LinkedInAPIError
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return lead.LinkedInNetworkError
		}
		return lead.LinkedInAPIError
	}
}

// scoreResults keeps LinkedIn hits with a positive relevance score and
// splits them by URL shape, each list sorted by score descending.
func scoreResults(organic []serp.OrganicResult, companyName, approvedDomain string) (companies, employees []lead.ScoredLink) {
	nameLower := strings.ToLower(companyName)
	domainLower := strings.ToLower(approvedDomain)

	for _, hit := range organic {
		urlLower := strings.ToLower(hit.URL)
		if !strings.Contains(urlLower, "linkedin.com") {
			continue
		}
		score := scoreHit(hit.Description, nameLower, domainLower)
		if score == 0 {
			continue
		}
		link := lead.ScoredLink{URL: hit.URL, Title: hit.Title, Description: hit.Description, Score: score}
		switch {
		case strings.Contains(urlLower, "/company/"):
			companies = append(companies, link)
		case strings.Contains(urlLower, "/in/"):
			employees = append(employees, link)
		}
	}
	sortByScore(companies)
	sortByScore(employees)
	return companies, employees
}

func scoreHit(description, nameLower, domainLower string) int {
	descLower := strings.ToLower(description)
	score := 0
	if nameLower != "" && strings.Contains(descLower, nameLower) {
		score += nameMatchScore
	}
	if domainLower != "" && strings.Contains(descLower, domainLower) {
		score += domainMatchScore
	}
	return score
}

func sortByScore(links []lead.ScoredLink) {
	sort.SliceStable(links, func(a, b int) bool {
		return links[a].Score > links[b].Score
	})
}
