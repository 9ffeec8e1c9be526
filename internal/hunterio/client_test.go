package hunterio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestCheckQuotaComputesAvailableCredits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/account", r.URL.Path)
		require.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"data": {
			"plan_name": "Free",
			"reset_date": "2026-09-12",
			"requests": {"credits": {"used": 2.0, "available": 50.0}}
		}}`))
	}))
	defer srv.Close()

	quota, err := newTestClient(t, srv).CheckQuota(context.Background())
	require.NoError(t, err)
	require.Equal(t, 48.0, quota.AvailableCredits)
	require.Equal(t, "Free", quota.PlanName)
}

func TestDomainSearchDecodesEmails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domain-search", r.URL.Path)
		require.Equal(t, "acme.co.uk", r.URL.Query().Get("domain"))
		_, _ = w.Write([]byte(`{"data": {
			"domain": "acme.co.uk",
			"emails": [
				{"value": "jane@acme.co.uk", "first_name": "Jane", "last_name": "Doe", "position": "Director", "confidence": 94},
				{"value": "info@acme.co.uk", "confidence": 70}
			]
		}}`))
	}))
	defer srv.Close()

	emails, err := newTestClient(t, srv).DomainSearch(context.Background(), "acme.co.uk")
	require.NoError(t, err)
	require.Len(t, emails, 2)
	require.Equal(t, "jane@acme.co.uk", emails[0].Value)
	require.Equal(t, 94, emails[0].Confidence)
	require.Equal(t, "Jane", emails[0].FirstName)
}

func TestDomainSearchSurfacesAPIErrorDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors": [{"details": "No user found for the API key supplied"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).DomainSearch(context.Background(), "acme.co.uk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "No user found")
}
