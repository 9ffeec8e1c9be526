package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, pages map[string]string) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, body)
	}))
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return srv, u.Host
}

func TestFetchHomepageFallsBackToHTTP(t *testing.T) {
	t.Parallel()

	srv, host := newServer(t, map[string]string{"/": "<html>home</html>"})
	defer srv.Close()

	site := NewSite(host, Options{Timeout: 5 * time.Second}, zap.NewNop())
	homepageURL, body, err := site.FetchHomepage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://"+host, homepageURL)
	require.Contains(t, body, "home")
}

func TestFetchReturnsErrorForMissingPage(t *testing.T) {
	t.Parallel()

	srv, host := newServer(t, map[string]string{"/": "<html>home</html>"})
	defer srv.Close()

	site := NewSite(host, Options{Timeout: 5 * time.Second}, zap.NewNop())
	_, err := site.Fetch(context.Background(), "http://"+host+"/missing")
	require.Error(t, err)
}

func TestFetchRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	srv, host := newServer(t, map[string]string{"/": "<html>home</html>"})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	site := NewSite(host, Options{Timeout: 5 * time.Second}, zap.NewNop())
	_, err := site.Fetch(ctx, "http://"+host)
	require.ErrorIs(t, err, context.Canceled)
}
