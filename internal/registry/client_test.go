package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

func TestNormalizeCompanyNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "already 8 digits", in: "12345678", want: "12345678"},
		{name: "pads short numbers", in: "1234", want: "00001234"},
		{name: "strips punctuation", in: " 123-456 ", want: "00123456"},
		{name: "rejects empty", in: "SC", wantErr: true},
		{name: "rejects too long", in: "123456789", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeCompanyNumber(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.limiter.sleep = c.sleep
	return c
}

func TestLookupSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "test-key", user)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/company/00001234":
			_, _ = w.Write([]byte(`{
				"company_name": "ACME WIDGETS LIMITED",
				"company_status": "active",
				"type": "ltd",
				"jurisdiction": "england-wales",
				"date_of_creation": "2001-05-10",
				"sic_codes": ["62020"],
				"has_charges": true,
				"accounts": {"last_accounts": {"made_up_to": "2023-12-31"}, "next_due": "2025-09-30"},
				"confirmation_statement": {"last_made_up_to": "2024-05-01", "next_due": "2025-05-15"}
			}`))
		case "/company/00001234/registered-office-address":
			_, _ = w.Write([]byte(`{"address_line_1": "1 Main St", "locality": "London", "postal_code": "EC1A 1AA"}`))
		case "/company/00001234/officers":
			_, _ = w.Write([]byte(`{
				"active_count": 2,
				"total_results": 3,
				"resigned_count": 1,
				"items": [
					{"name": "DOE, Jane", "officer_role": "director"},
					{"name": "SMITH, John", "officer_role": "secretary"},
					{"name": "OLD, Bob", "officer_role": "director", "resigned_on": "2010-01-01"}
				]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL).Lookup(context.Background(), "1234")
	require.Equal(t, lead.RegistrySuccess, res.Status)
	require.Equal(t, "ACME WIDGETS LIMITED", res.Profile.CompanyName)
	require.Equal(t, "active", res.Profile.CompanyStatus)
	require.True(t, res.Profile.HasCharges)
	require.Equal(t, "1 Main St", res.Profile.Address.AddressLine1)
	require.Equal(t, 2, res.Profile.ActiveOfficerCount)
	require.Equal(t, "DOE, Jane (director); SMITH, John (secretary)", res.Profile.KeyOfficers)
	require.Equal(t, "2023-12-31", res.Profile.LastAccountsDate)
}

func TestLookupCompanyNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL).Lookup(context.Background(), "99999999")
	require.Equal(t, lead.RegistryCompanyNotFound, res.Status)
}

func TestLookupInvalidNumberSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL).Lookup(context.Background(), "no digits here")
	require.Equal(t, lead.RegistryInvalidCompanyNumber, res.Status)
	require.Zero(t, calls.Load())
}

func TestLookupRetriesOnceOn429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company/00001234" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"company_name": "ACME WIDGETS LIMITED"}`))
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL).Lookup(context.Background(), "1234")
	require.Equal(t, lead.RegistrySuccess, res.Status)
	require.Equal(t, int32(2), calls.Load())
}

func TestLookupRateLimitedAfterRetry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := newTestClient(t, srv.URL).Lookup(context.Background(), "1234")
	require.Equal(t, lead.RegistryRateLimitError, res.Status)
}

func TestWindowLimiterBlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	var slept time.Duration
	l := newWindowLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.Zero(t, slept)

	// Third request must wait for the window to roll over.
	require.NoError(t, l.Wait(ctx))
	require.Equal(t, time.Minute, slept)
}
