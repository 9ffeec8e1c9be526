package serp

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// inurl operators substituted for matching keywords in version 2 queries.
var inurlKeywords = []struct {
	contains string
	operator string
}{
	{"privacy", "inurl:privacy"},
	{"terms", "inurl:terms"},
	{"about", "inurl:about"},
	{"contact", "inurl:contact"},
	{"company", "inurl:company"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// BuildQuery builds the version 1 hunting query: quoted identifiers
// OR-ed together, quoted keywords OR-ed together, and -site: exclusions.
func BuildQuery(identifiers, keywords, excludedDomains []string) (string, error) {
	ids := nonEmpty(identifiers)
	if len(ids) == 0 {
		return "", fmt.Errorf("at least one identifier is required")
	}
	return fmt.Sprintf("(%s) (%s) %s",
		orJoinQuoted(ids),
		orJoinQuoted(nonEmpty(keywords)),
		siteExclusions(excludedDomains),
	), nil
}

// BuildQueryV2 builds the inurl: variant, mapping each keyword to an
// inurl operator.
func BuildQueryV2(identifiers, keywords, excludedDomains []string) (string, error) {
	ids := nonEmpty(identifiers)
	if len(ids) == 0 {
		return "", fmt.Errorf("at least one identifier is required")
	}
	var ops []string
	seen := map[string]bool{}
	for _, kw := range nonEmpty(keywords) {
		op := inurlOperator(kw)
		if op != "" && !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}
	return fmt.Sprintf("(%s) (%s) %s",
		orJoinQuoted(ids),
		strings.Join(ops, " OR "),
		siteExclusions(excludedDomains),
	), nil
}

// BuildLinkedInQuery restricts the search to linkedin.com.
func BuildLinkedInQuery(companyName, domain string) string {
	if domain != "" {
		return fmt.Sprintf(`site:linkedin.com/ "%s" OR "%s"`, companyName, domain)
	}
	return fmt.Sprintf(`site:linkedin.com/ "%s"`, companyName)
}

// ExtractDomains maps organic results to unique base domains,
// preserving result order and dropping blacklisted domains.
func ExtractDomains(results []OrganicResult, blacklisted []string) []string {
	blocked := make(map[string]bool, len(blacklisted))
	for _, d := range blacklisted {
		blocked[strings.ToLower(d)] = true
	}
	var domains []string
	seen := map[string]bool{}
	for _, r := range results {
		domain := BaseDomain(r.URL)
		if domain == "" || seen[domain] || blocked[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
	}
	return domains
}

// BaseDomain reduces a URL to its bare hostname: lowercase, www.
// stripped, and sanity-checked.
func BaseDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		// Bare domains without a scheme parse into the path.
		host = strings.ToLower(strings.SplitN(u.Path, "/", 2)[0])
	}
	host = strings.TrimPrefix(host, "www.")
	if len(host) < 3 || !strings.Contains(host, ".") {
		return ""
	}
	return host
}

func inurlOperator(keyword string) string {
	lower := strings.ToLower(keyword)
	for _, m := range inurlKeywords {
		if strings.Contains(lower, m.contains) {
			return m.operator
		}
	}
	clean := nonAlnum.ReplaceAllString(lower, "")
	if clean == "" {
		return ""
	}
	return "inurl:" + clean
}

func orJoinQuoted(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+v+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func siteExclusions(domains []string) string {
	var parts []string
	for _, d := range nonEmpty(domains) {
		parts = append(parts, "-site:"+d)
	}
	return strings.Join(parts, " ")
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
