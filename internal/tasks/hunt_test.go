package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/serp"
	"github.com/leadtrail/leadtrail/internal/store/memory"
)

type fakeSERP struct {
	quota     serp.Status
	quotaErr  error
	response  serp.SearchResponse
	searchErr error
	queries   []string
}

func (f *fakeSERP) CheckQuota(context.Context) (serp.Status, error) {
	return f.quota, f.quotaErr
}

func (f *fakeSERP) Search(_ context.Context, query string) (serp.SearchResponse, error) {
	f.queries = append(f.queries, query)
	return f.response, f.searchErr
}

type fakeRanker struct {
	rankings []lead.DomainRanking
	failed   int
	calls    [][]string
}

func (f *fakeRanker) RankDomains(_ context.Context, domains []string, _, _ string) ([]lead.DomainRanking, int) {
	f.calls = append(f.calls, domains)
	return f.rankings, f.failed
}

func seedHuntCandidate(t *testing.T, store *memory.Store) lead.CompanyNumber {
	t.Helper()
	companies := seedCompanies(t, store, "12345678")
	withRegistrySuccess(t, store, companies[0].ID, "Acme Ltd")
	withVATRecord(t, store, companies[0].ID, "GB123456789")
	return companies[0]
}

func TestHuntTaskRanksAndRecords(t *testing.T) {
	store := memory.New()
	company := seedHuntCandidate(t, store)
	store.SetSettings([]string{"privacy policy"}, []string{"facebook.com"}, []string{"spam.example"})

	credits := 41.0
	searcher := &fakeSERP{
		quota: serp.Status{RemainingRequests: 42},
		response: serp.SearchResponse{Organic: []serp.OrganicResult{
			{URL: "https://www.acme.co.uk/about"},
			{URL: "https://spam.example/acme"},
		}},
	}
	searcher.response.Query.CreditsRemaining = &credits
	ranker := &fakeRanker{rankings: []lead.DomainRanking{
		{Domain: "acme.co.uk", Score: 1.75, NumberMatched: true, VATMatched: true, PagesCrawled: 4},
	}}
	pub := &capturePublisher{}
	task := NewHuntTask(newDeps(store, pub), searcher, ranker, Schedule{})

	require.NoError(t, task.Run(context.Background()))

	require.Len(t, searcher.queries, 1)
	assert.Contains(t, searcher.queries[0], `"Acme Ltd"`)
	assert.Contains(t, searcher.queries[0], `"12345678"`)
	assert.Contains(t, searcher.queries[0], "-site:facebook.com")

	require.Len(t, ranker.calls, 1)
	assert.Equal(t, []string{"acme.co.uk"}, ranker.calls[0], "blacklisted domain dropped")

	require.Len(t, pub.events, 1)
	assert.Equal(t, company.ID, pub.events[0].CompanyID)
	assert.Equal(t, string(lead.HuntSuccess), pub.events[0].Status)

	quota, err := store.GetSERPQuota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41.0, quota.AvailableCredits, "post-search balance wins")
}

func TestHuntTaskSkipsRunWhenQuotaExhausted(t *testing.T) {
	store := memory.New()
	seedHuntCandidate(t, store)

	searcher := &fakeSERP{quota: serp.Status{RemainingRequests: 0}}
	task := NewHuntTask(newDeps(store, &capturePublisher{}), searcher, &fakeRanker{}, Schedule{})

	require.NoError(t, task.Run(context.Background()))
	assert.Empty(t, searcher.queries)

	remaining, err := store.UnprocessedForHunt(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "candidate not consumed")
}

func TestHuntTaskRecordsSearchFailure(t *testing.T) {
	store := memory.New()
	company := seedHuntCandidate(t, store)

	searcher := &fakeSERP{
		quota:     serp.Status{RemainingRequests: 10},
		searchErr: serp.ErrRateLimited,
	}
	pub := &capturePublisher{}
	task := NewHuntTask(newDeps(store, pub), searcher, &fakeRanker{}, Schedule{})

	require.NoError(t, task.Run(context.Background()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, company.ID, pub.events[0].CompanyID)
	assert.Equal(t, string(lead.HuntQuotaExceeded), pub.events[0].Status)

	remaining, err := store.UnprocessedForHunt(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining, "failed company still consumed")
}

func TestHuntTaskNoWebsitesFound(t *testing.T) {
	store := memory.New()
	seedHuntCandidate(t, store)

	store.SetSettings([]string{"privacy policy"}, nil, nil)

	searcher := &fakeSERP{quota: serp.Status{RemainingRequests: 10}}
	pub := &capturePublisher{}
	task := NewHuntTask(newDeps(store, pub), searcher, &fakeRanker{}, Schedule{})

	require.NoError(t, task.Run(context.Background()))
	require.Len(t, pub.events, 1)
	assert.Equal(t, string(lead.HuntNoWebsitesFound), pub.events[0].Status)

	// The empty first search triggers the inurl: variant before the
	// company is written off.
	require.Len(t, searcher.queries, 2)
	assert.Contains(t, searcher.queries[1], "inurl:privacy")
}

func TestHuntStatusDerivation(t *testing.T) {
	tests := []struct {
		name     string
		rankings []lead.DomainRanking
		failed   int
		want     lead.HuntStatus
	}{
		{
			name: "number matched",
			rankings: []lead.DomainRanking{
				{Domain: "acme.co.uk", Score: 1.0, NumberMatched: true},
			},
			want: lead.HuntSuccess,
		},
		{
			name: "vat only",
			rankings: []lead.DomainRanking{
				{Domain: "acme.co.uk", Score: 0.75, VATMatched: true},
			},
			want: lead.HuntPartialSuccess,
		},
		{
			name: "no matches",
			rankings: []lead.DomainRanking{
				{Domain: "acme.co.uk"},
				{Domain: "other.co.uk"},
			},
			want: lead.HuntNoMatchesFound,
		},
		{
			name: "all homepages failed",
			rankings: []lead.DomainRanking{
				{Domain: "acme.co.uk"},
				{Domain: "other.co.uk"},
			},
			failed: 2,
			want:   lead.HuntCrawlError,
		},
		{
			name: "no rankings",
			want: lead.HuntNoWebsitesFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, huntStatus(tt.rankings, tt.failed))
		})
	}
}

func TestSearchErrorStatus(t *testing.T) {
	assert.Equal(t, lead.HuntQuotaExceeded, searchErrorStatus(serp.ErrRateLimited))
	assert.Equal(t, lead.HuntTimeoutError, searchErrorStatus(context.DeadlineExceeded))
	assert.Equal(t, lead.HuntAPIError, searchErrorStatus(serp.ErrAuth))
}
