package hunt

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var whitespace = regexp.MustCompile(`\s+`)

// normalizeForMatch uppercases and strips all whitespace so that
// "12 345 678" still matches "12345678".
func normalizeForMatch(s string) string {
	return whitespace.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// pageText extracts the visible text of an HTML page. Falls back to
// the raw markup when parsing fails; identifiers in attributes still
// count as weaker-but-real evidence.
func pageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// matchesIdentifier reports an exact match of the identifier in the
// page's visible text.
func matchesIdentifier(html, identifier string) bool {
	needle := normalizeForMatch(identifier)
	if needle == "" {
		return false
	}
	return strings.Contains(normalizeForMatch(pageText(html)), needle)
}

// matchesVAT matches a VAT number with and without its GB prefix.
func matchesVAT(html, vatNumber string) bool {
	full := normalizeForMatch(vatNumber)
	if full == "" {
		return false
	}
	content := normalizeForMatch(pageText(html))
	if strings.Contains(content, full) {
		return true
	}
	numeric := strings.TrimPrefix(full, "GB")
	return numeric != full && numeric != "" && strings.Contains(content, numeric)
}

// extractSameDomainLinks returns absolute same-domain URLs from the
// page's anchors, deduplicated, preserving document order.
func extractSameDomainLinks(pageURL, html, domain string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	wantDomain := strings.ToLower(domain)
	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !sameHost(abs, wantDomain) {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if !seen[link] && strings.TrimSuffix(link, "/") != strings.TrimSuffix(pageURL, "/") {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}

// sameHost compares a URL's host against the crawl domain, with and
// without the port, ignoring a www. prefix.
func sameHost(u *url.URL, domain string) bool {
	if strings.TrimPrefix(strings.ToLower(u.Host), "www.") == domain {
		return true
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") == domain
}

// archiveObjectName builds a stable blob path for an archived page.
func archiveObjectName(domain, pageURL string, at time.Time) string {
	slug := strings.Trim(whitespace.ReplaceAllString(pageURL, ""), "/")
	slug = strings.NewReplacer("https://", "", "http://", "", "/", "_", "?", "_", "&", "_").Replace(slug)
	if len(slug) > 120 {
		slug = slug[:120]
	}
	return path.Join("pages", domain, at.Format("2006-01-02"), fmt.Sprintf("%s.html", slug))
}
