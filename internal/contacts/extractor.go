// Package contacts extracts UK phone numbers, email addresses, and
// social profiles from an approved company website.
package contacts

import (
	"regexp"
	"sort"
	"strings"
)

// Result caps keep a single link-farm page from flooding a record.
const (
	maxPhones            = 15
	maxEmails            = 15
	maxLinksPerPlatform  = 5
	minUniquePhoneDigits = 3
)

// UK phone number shapes, most specific first. Matching is loose;
// validPhone does the real filtering on the digit string.
var phonePatterns = []*regexp.Regexp{
	// Landline: 01xxx, 02x, 03xx.
	regexp.MustCompile(`\b0(?:1[1-9]\d{1,2}|2[0-9]|3[0-9])\s?\d{3,4}\s?\d{3,4}\b`),
	// Mobile: 07xxx or +44 7xxx.
	regexp.MustCompile(`\b(?:\+44\s?7|07)[0-9]{3}\s?\d{3}\s?\d{3}\b`),
	// Freephone.
	regexp.MustCompile(`\b0(?:800|808)\s?\d{3}\s?\d{4}\b`),
	// Service numbers.
	regexp.MustCompile(`\b0(?:845|870|871|872|873)\s?\d{3}\s?\d{4}\b`),
	// Premium rate.
	regexp.MustCompile(`\b09[0-9]{2}\s?\d{3}\s?\d{4}\b`),
	// International without the leading zero.
	regexp.MustCompile(`\+44\s?\d{2,4}\s?\d{3,4}\s?\d{3,4}\b`),
	// Bracketed area code: (0161) 496 1234.
	regexp.MustCompile(`\(0\d{2,4}\)\s?\d{3,4}\s?\d{3,4}`),
	// Dashed: 0xxx-xxx-xxxx.
	regexp.MustCompile(`\b0\d{2,4}-\d{3,4}-\d{3,4}\b`),
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// emailExclusions drop documentation placeholders and machine senders.
var emailExclusions = []string{
	"example.com", "example.org", "test.com", "dummy.com", "placeholder",
	"yourname@", "name@domain", "@example", "noreply@", "no-reply@",
	"sentry",
}

var socialPatterns = map[string]*regexp.Regexp{
	"facebook":  regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com/[A-Za-z0-9._-]+`),
	"instagram": regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/[A-Za-z0-9._-]+`),
	"linkedin":  regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/(?:in|company)/[A-Za-z0-9._-]+`),
}

// socialExclusions drop share widgets, auth pages, and generic hubs.
var socialExclusions = []string{
	"/sharer", "/share?", "/login", "/signup", "/home",
	"facebook.com/pages", "facebook.com/pg",
}

// phoneTestNumbers are the documented example ranges; they show up in
// templates and tutorials, never as real contact numbers.
var phoneTestNumbers = []string{
	"01234567890",
	"02079460000",
	"01214960000",
	"07700900000",
	"08001111111",
	"09999999999",
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// Extraction accumulates findings across the pages of one site.
type Extraction struct {
	phones map[string]bool
	emails map[string]bool
	social map[string]map[string]bool
}

func NewExtraction() *Extraction {
	return &Extraction{
		phones: map[string]bool{},
		emails: map[string]bool{},
		social: map[string]map[string]bool{
			"facebook":  {},
			"instagram": {},
			"linkedin":  {},
		},
	}
}

// AddPage scans one page. Phones are matched against visible text
// only; emails and social links are also mined from the raw markup,
// where mailto: and profile hrefs live.
func (e *Extraction) AddPage(text, html string) {
	for _, pattern := range phonePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			phone := strings.TrimSpace(match)
			if validPhone(phone) {
				e.phones[phone] = true
			}
		}
	}
	for _, content := range []string{text, html} {
		for _, match := range emailPattern.FindAllString(content, -1) {
			email := strings.ToLower(strings.TrimSpace(match))
			if validEmail(email) {
				e.emails[email] = true
			}
		}
		for platform, pattern := range socialPatterns {
			for _, match := range pattern.FindAllString(content, -1) {
				if link, ok := normalizeSocialLink(match); ok {
					e.social[platform][link] = true
				}
			}
		}
	}
}

// Empty reports whether nothing at all was found.
func (e *Extraction) Empty() bool {
	return len(e.phones) == 0 && len(e.emails) == 0 &&
		len(e.social["facebook"]) == 0 && len(e.social["instagram"]) == 0 &&
		len(e.social["linkedin"]) == 0
}

// Phones returns the deduplicated phone numbers, capped and sorted.
func (e *Extraction) Phones() []string { return capped(e.phones, maxPhones) }

// Emails returns the deduplicated addresses, capped and sorted.
func (e *Extraction) Emails() []string { return capped(e.emails, maxEmails) }

// Social returns the links found for one platform, capped and sorted.
func (e *Extraction) Social(platform string) []string {
	return capped(e.social[platform], maxLinksPerPlatform)
}

func capped(set map[string]bool, limit int) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// validPhone applies the UK digit-string rules to a raw match.
func validPhone(phone string) bool {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 13 {
		return false
	}
	for _, testNum := range phoneTestNumbers {
		if strings.Contains(digits, testNum) {
			return false
		}
	}
	if !validUKDigits(digits) {
		return false
	}
	// 0800 8000 is fine; 11 of the same digit is a decoration.
	if uniqueDigits(digits) < minUniquePhoneDigits && len(digits) > 8 {
		return false
	}
	return true
}

// validUKDigits checks the national number plan prefixes. The +44
// country code is folded back into the leading zero first.
func validUKDigits(digits string) bool {
	if strings.HasPrefix(digits, "44") {
		digits = "0" + digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		return false
	}
	if !strings.HasPrefix(digits, "0") {
		return false
	}
	prefixes11 := []string{"07", "01", "020", "0121", "0131", "0141", "0151", "0161", "0191", "0800", "0808", "0845", "0870", "0871", "0872", "0873", "09"}
	prefixes10 := []string{"02", "012", "013", "014", "015", "016", "019", "0800", "0808", "0845", "0870", "0871", "0872", "0873"}
	prefixes := prefixes10
	if len(digits) == 11 {
		prefixes = prefixes11
	}
	for _, p := range prefixes {
		if strings.HasPrefix(digits, p) {
			return true
		}
	}
	return false
}

func uniqueDigits(digits string) int {
	seen := map[rune]bool{}
	for _, d := range digits {
		seen[d] = true
	}
	return len(seen)
}

func validEmail(email string) bool {
	for _, exclude := range emailExclusions {
		if strings.Contains(email, exclude) {
			return false
		}
	}
	return true
}

// normalizeSocialLink forces an https scheme and drops widget and
// auth URLs.
func normalizeSocialLink(raw string) (string, bool) {
	link := strings.TrimSpace(raw)
	if !strings.HasPrefix(link, "http") {
		link = "https://" + link
	}
	lower := strings.ToLower(link)
	for _, exclude := range socialExclusions {
		if strings.Contains(lower, exclude) {
			return "", false
		}
	}
	return link, true
}
