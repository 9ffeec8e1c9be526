package snovio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// snovHandler fakes the OAuth endpoint plus whatever extra routes a
// test registers.
func snovHandler(t *testing.T, tokenCalls *atomic.Int32, routes map[string]http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/access_token" {
			require.NoError(t, r.ParseForm())
			require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			require.Equal(t, "id", r.PostForm.Get("client_id"))
			require.Equal(t, "secret", r.PostForm.Get("client_secret"))
			if tokenCalls != nil {
				tokenCalls.Add(1)
			}
			_, _ = w.Write([]byte(`{"access_token": "tok123", "expires_in": 3600}`))
			return
		}
		handler, ok := routes[r.URL.Path]
		require.True(t, ok, "unexpected path %s", r.URL.Path)
		handler(w, r)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret"}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ClientID: "id"}, zap.NewNop())
	require.Error(t, err)
}

func TestCheckBalanceParsesStringBalance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(snovHandler(t, nil, map[string]http.HandlerFunc{
		"/get-balance": func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"success": true, "data": {"balance": "1000.00"}}`))
		},
	}))
	defer srv.Close()

	balance, err := newTestClient(t, srv).CheckBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1000.0, balance)
}

func TestAccessTokenIsCached(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	srv := httptest.NewServer(snovHandler(t, &tokenCalls, map[string]http.HandlerFunc{
		"/get-balance": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {"balance": "5.00"}}`))
		},
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CheckBalance(context.Background())
	require.NoError(t, err)
	_, err = c.CheckBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), tokenCalls.Load())
}

func TestProcessProfileFormatsEmails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(snovHandler(t, nil, map[string]http.HandlerFunc{
		"/add-url-for-search": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			require.Equal(t, "tok123", r.PostForm.Get("access_token"))
			require.Equal(t, "https://linkedin.com/in/jane", r.PostForm.Get("url"))
			_, _ = w.Write([]byte(`{"success": true}`))
		},
		"/get-emails-from-url": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {
				"currentJob": [{"position": "Director"}],
				"emails": [
					{"email": "jane@acme.co.uk", "status": "valid"},
					{"email": "j.doe@acme.co.uk", "status": "unverified"}
				]
			}}`))
		},
	}))
	defer srv.Close()

	profile := newTestClient(t, srv).ProcessProfile(context.Background(), "https://linkedin.com/in/jane")
	require.Equal(t, lead.SnovProfileSuccess, profile.Status)
	require.Equal(t, "Director", profile.Position)
	require.Equal(t, []string{"jane@acme.co.uk (valid)", "j.doe@acme.co.uk (unverified)"}, profile.Emails)
}

func TestProcessProfileNotFoundWhenNoEmails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(snovHandler(t, nil, map[string]http.HandlerFunc{
		"/add-url-for-search": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": true}`))
		},
		"/get-emails-from-url": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {"previousJob": [{"position": "Engineer"}], "emails": []}}`))
		},
	}))
	defer srv.Close()

	profile := newTestClient(t, srv).ProcessProfile(context.Background(), "https://linkedin.com/in/jane")
	require.Equal(t, lead.SnovProfileNotFound, profile.Status)
	require.Equal(t, "Engineer (Previous)", profile.Position)
	require.Empty(t, profile.Emails)
}

func TestProcessProfileAPIErrorWhenQueueingFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(snovHandler(t, nil, map[string]http.HandlerFunc{
		"/add-url-for-search": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "message": "url is not a profile"}`))
		},
	}))
	defer srv.Close()

	profile := newTestClient(t, srv).ProcessProfile(context.Background(), "https://linkedin.com/company/acme")
	require.Equal(t, lead.SnovProfileAPIError, profile.Status)
	require.Contains(t, profile.Message, "url is not a profile")
}
