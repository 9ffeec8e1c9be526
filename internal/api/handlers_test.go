package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadtrail/leadtrail/internal/api"
	"github.com/leadtrail/leadtrail/internal/config"
	"github.com/leadtrail/leadtrail/internal/hunterio"
	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type fakeHunterQuota struct {
	quota hunterio.Quota
	err   error
}

func (f fakeHunterQuota) CheckQuota(context.Context) (hunterio.Quota, error) {
	return f.quota, f.err
}

type fakeSnovBalance struct {
	balance float64
	err     error
}

func (f fakeSnovBalance) CheckBalance(context.Context) (float64, error) {
	return f.balance, f.err
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		HTTP:   config.HTTPConfig{TimeoutSeconds: 30},
	}
}

func newTestServer(store lead.Store) *api.Server {
	return api.NewServer(
		store,
		&seqIDs{},
		fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		testConfig(),
		fakeHunterQuota{quota: hunterio.Quota{AvailableCredits: 48, PlanName: "starter"}},
		fakeSnovBalance{balance: 1000},
	)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(memory.New())
	rr := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateCampaignWithNumbers(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"name":            "Q1 outreach",
		"company_numbers": []string{"12345678", "12345678", "00000001"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Campaign       lead.Campaign `json:"campaign"`
		CompaniesAdded int           `json:"companies_added"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Q1 outreach", resp.Campaign.Name)
	assert.Equal(t, 2, resp.CompaniesAdded, "duplicate number skipped")

	companies, err := store.UnprocessedForRegistry(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, companies, 2)
}

func TestCreateCampaignRequiresName(t *testing.T) {
	srv := newTestServer(memory.New())
	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	srv := newTestServer(memory.New())
	rr := doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProgressEndpoint(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"name":            "Q1 outreach",
		"company_numbers": []string{"12345678"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Campaign lead.Campaign `json:"campaign"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns/"+created.Campaign.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var progress lead.CampaignProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &progress))
	assert.Equal(t, 1, progress.Companies)
	require.NotEmpty(t, progress.Stages)
	assert.Equal(t, lead.StageRegistry, progress.Stages[0].Stage)
	assert.Zero(t, progress.Stages[0].Done)
}

func TestApproveDomainFlow(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	require.NoError(t, store.CreateCampaign(context.Background(), lead.Campaign{ID: "camp-1", Name: "c"}))
	_, err := store.AddCompanyNumbers(context.Background(), "camp-1", []string{"12345678"})
	require.NoError(t, err)
	companies, err := store.UnprocessedForRegistry(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, store.SaveHuntRecord(context.Background(), lead.HuntRecord{
		ID:               "hunt-1",
		CompanyID:        companies[0].ID,
		CandidateDomains: []string{"acme.co.uk", "acme-group.co.uk"},
		Status:           lead.HuntSuccess,
	}))

	t.Run("RejectsNonCandidate", func(t *testing.T) {
		rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/hunts/hunt-1/approve", map[string]string{
			"domain":      "evil.example",
			"approved_by": "reviewer",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("ApprovesCandidate", func(t *testing.T) {
		rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/hunts/hunt-1/approve", map[string]string{
			"domain":      "acme.co.uk",
			"approved_by": "reviewer",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var rec lead.HuntRecord
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
		assert.Equal(t, "acme.co.uk", rec.ApprovedDomain)
		assert.Equal(t, "reviewer", rec.ApprovedBy)
	})

	t.Run("MissingRecord", func(t *testing.T) {
		rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/hunts/missing/approve", map[string]string{
			"domain": "acme.co.uk",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestEmployeeReviewEndpoint(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	require.NoError(t, store.CreateCampaign(context.Background(), lead.Campaign{ID: "camp-1", Name: "c"}))
	_, err := store.AddCompanyNumbers(context.Background(), "camp-1", []string{"12345678"})
	require.NoError(t, err)
	companies, err := store.UnprocessedForRegistry(context.Background(), 1)
	require.NoError(t, err)

	rr := doJSON(t, srv.Handler(), http.MethodPost,
		"/v1/companies/"+companies[0].ID+"/employee-review",
		map[string]any{
			"approved_employee_urls": []string{"https://linkedin.com/in/jane"},
			"reviewed_by":            "reviewer",
		})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv.Handler(), http.MethodPost, "/v1/companies/missing/employee-review",
		map[string]any{"approved_employee_urls": []string{}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQuotasEndpoint(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.SetSERPQuota(context.Background(), lead.SERPQuota{AvailableCredits: 37}))
	srv := newTestServer(store)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/v1/quotas", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		SERP   lead.SERPQuota `json:"serp"`
		Hunter *struct {
			AvailableCredits float64 `json:"available_credits"`
			PlanName         string  `json:"plan_name"`
		} `json:"hunter"`
		Snov *struct {
			Balance float64 `json:"balance"`
		} `json:"snov"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 37.0, resp.SERP.AvailableCredits)
	require.NotNil(t, resp.Hunter)
	assert.Equal(t, 48.0, resp.Hunter.AvailableCredits)
	assert.Equal(t, "starter", resp.Hunter.PlanName)
	require.NotNil(t, resp.Snov)
	assert.Equal(t, 1000.0, resp.Snov.Balance)
}

func TestQuotasEndpointSurfacesProviderErrors(t *testing.T) {
	store := memory.New()
	srv := api.NewServer(
		store,
		&seqIDs{},
		fixedClock{now: time.Now()},
		testConfig(),
		fakeHunterQuota{err: errors.New("hunter down")},
		nil,
	)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/v1/quotas", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Hunter *struct {
			Error string `json:"error"`
		} `json:"hunter"`
		Snov any `json:"snov"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Hunter)
	assert.Equal(t, "hunter down", resp.Hunter.Error)
	assert.Nil(t, resp.Snov)
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AuthEnabled = true
	cfg.Server.APIKey = "secret"
	srv := api.NewServer(memory.New(), &seqIDs{}, fixedClock{now: time.Now()}, cfg, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
