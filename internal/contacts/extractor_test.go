package contacts

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

	"github.com/leadtrail/leadtrail/internal/lead"
)

func TestValidPhone(t *testing.T) {
	t.Parallel()

	valid := []string{
		"020 7123 4567",
		"0161 496 1234",
		"07911 123 456",
		"+44 7911 123 456",
		"0800 123 4567",
		"0845 123 4567",
	}
	for _, phone := range valid {
		require.True(t, validPhone(phone), "expected valid: %q", phone)
	}

	invalid := []string{
		"020 7946 0000",  // example range
		"07700 900 000",  // example range
		"0800 111 1111",  // test freephone
		"1234 567 890",   // no leading zero
		"0111 111 1111",  // repetitive
		"04123 456 7890", // 04 is unassigned
	}
	for _, phone := range invalid {
		require.False(t, validPhone(phone), "expected invalid: %q", phone)
	}
}

func TestValidUKDigitsConvertsCountryCode(t *testing.T) {
	t.Parallel()

	require.True(t, validUKDigits("447911123456"))
	require.True(t, validUKDigits("02071234567"))
	require.False(t, validUKDigits("12071234567"))
	require.False(t, validUKDigits("0207123"))
}

func TestAddPageExtractsPhonesEmailsAndSocial(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<p>Call us on 020 7123 4567 or 07911 123 456.</p>
		<p>Email <a href="mailto:sales@acme.co.uk">sales@acme.co.uk</a>
		or support@acme.co.uk. Not noreply@acme.co.uk or jane@example.com.</p>
		<a href="https://www.facebook.com/acmeltd">Facebook</a>
		<a href="https://facebook.com/sharer/sharer.php">Share</a>
		<a href="https://linkedin.com/company/acme-ltd">LinkedIn</a>
		<script>track("0161 496 1234")</script>
	</body></html>`

	e := NewExtraction()
	e.AddPage(visibleText(html), html)

	require.ElementsMatch(t, []string{"020 7123 4567", "07911 123 456"}, e.Phones())
	require.ElementsMatch(t, []string{"sales@acme.co.uk", "support@acme.co.uk"}, e.Emails())
	require.Equal(t, []string{"https://www.facebook.com/acmeltd"}, e.Social("facebook"))
	require.Equal(t, []string{"https://linkedin.com/company/acme-ltd"}, e.Social("linkedin"))
	require.Empty(t, e.Social("instagram"))
	require.False(t, e.Empty())
}

func TestExtractionCapsResults(t *testing.T) {
	t.Parallel()

	e := NewExtraction()
	for i := 0; i < 30; i++ {
		e.emails[fmt.Sprintf("user%02d@acme.co.uk", i)] = true
	}
	require.Len(t, e.Emails(), maxEmails)
}

func TestNormalizeSocialLink(t *testing.T) {
	t.Parallel()

	link, ok := normalizeSocialLink("facebook.com/acmeltd")
	require.True(t, ok)
	require.Equal(t, "https://facebook.com/acmeltd", link)

	_, ok = normalizeSocialLink("https://facebook.com/pages/whatever")
	require.False(t, ok)
	_, ok = normalizeSocialLink("https://linkedin.com/company/x/login")
	require.False(t, ok)
}

func TestContactPageLinksFiltersByKeyword(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/contact-us">Contact</a>
		<a href="/products">Products</a>
		<a href="/misc">Get in touch</a>
		<a href="https://other.com/contact">Elsewhere</a>
		<a href="/privacy">Privacy</a>
	</body></html>`

	links := contactPageLinks("https://acme.co.uk", html, "acme.co.uk")
	require.Equal(t, []string{
		"https://acme.co.uk/contact-us",
		"https://acme.co.uk/misc",
		"https://acme.co.uk/privacy",
	}, links)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memoryBlobStore struct{ objects map[string][]byte }

func (s *memoryBlobStore) Save(_ context.Context, name string, data []byte) error {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[name] = data
	return nil
}

func newSiteServer(t *testing.T, pages map[string]string) (*httptest.Server, string) {
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

func TestExtractCrawlsContactPages(t *testing.T) {
	t.Parallel()

	srv, host := newSiteServer(t, map[string]string{
		"/": `<html><body>
			<a href="/contact">Contact</a>
			<a href="/products">Products</a>
		</body></html>`,
		"/contact": `<html><body>
			Phone: 020 7123 4567. Email: info@acme.co.uk.
		</body></html>`,
	})
	defer srv.Close()

	archive := &memoryBlobStore{}
	c := NewCrawler(Config{MaxPages: 10, Delay: time.Millisecond, Timeout: 5 * time.Second},
		zap.NewNop(), archive, fixedClock{now: time.Unix(0, 0)})

	out := c.Extract(context.Background(), host)
	require.Equal(t, lead.ContactSuccess, out.Status)
	require.Equal(t, []string{"020 7123 4567"}, out.Phones)
	require.Equal(t, []string{"info@acme.co.uk"}, out.Emails)
	require.Equal(t, 2, out.PagesCrawled)
	require.Len(t, archive.objects, 2)
}

func TestExtractReportsNoContactsFound(t *testing.T) {
	t.Parallel()

	srv, host := newSiteServer(t, map[string]string{
		"/": `<html><body>Nothing to see.</body></html>`,
	})
	defer srv.Close()

	c := NewCrawler(Config{MaxPages: 5, Timeout: 5 * time.Second}, zap.NewNop(), nil, fixedClock{})
	out := c.Extract(context.Background(), host)
	require.Equal(t, lead.ContactNoContactsFound, out.Status)
	require.Equal(t, 1, out.PagesCrawled)
}

func TestExtractReportsNetworkErrorForDeadHost(t *testing.T) {
	t.Parallel()

	c := NewCrawler(Config{MaxPages: 5, Timeout: time.Second}, zap.NewNop(), nil, fixedClock{})
	out := c.Extract(context.Background(), "127.0.0.1:1")
	require.Equal(t, lead.ContactNetworkError, out.Status)
	require.NotEmpty(t, out.ErrorMessage)
	require.Zero(t, out.PagesCrawled)
}
