package vat

import (
	"regexp"
	"strings"
)

type transformation struct {
	pattern     *regexp.Regexp
	replacement string
}

// Transformations expand the abbreviations UK filings use but the VAT
// register usually spells out. Applied cumulatively, each distinct
// intermediate form becomes a search variation.
var transformations = []transformation{
	{regexp.MustCompile(`\s*&\s*CO\.\s*LTD\s*$`), " & COMPANY LIMITED"},
	{regexp.MustCompile(`\s*&\s*CO\s*LTD\s*$`), " & COMPANY LIMITED"},
	{regexp.MustCompile(`\s*&\s*CO\.\s*$`), " & COMPANY"},
	{regexp.MustCompile(`\s*&\s*CO\s*$`), " & COMPANY"},
	{regexp.MustCompile(`\bLTD\.\s*$`), "LIMITED"},
	{regexp.MustCompile(`\bLTD\s*$`), "LIMITED"},
	{regexp.MustCompile(`\bCO\.\s*$`), "COMPANY"},
	{regexp.MustCompile(`\bCO\s*$`), "COMPANY"},
	{regexp.MustCompile(`\bCORP\.\s*$`), "CORPORATION"},
	{regexp.MustCompile(`\bCORP\s*$`), "CORPORATION"},
	{regexp.MustCompile(`\bINC\.\s*$`), "INCORPORATED"},
	{regexp.MustCompile(`\bINC\s*$`), "INCORPORATED"},
	{regexp.MustCompile(`\bSVCS\b`), "SERVICES"},
	{regexp.MustCompile(`\bSVC\b`), "SERVICE"},
	{regexp.MustCompile(`\bGRP\b`), "GROUP"},
	{regexp.MustCompile(`\bHLDGS?\b`), "HOLDINGS"},
	{regexp.MustCompile(`\bMGMT\b`), "MANAGEMENT"},
	{regexp.MustCompile(`\bMGT\b`), "MANAGEMENT"},
	{regexp.MustCompile(`\bTECH\b`), "TECHNOLOGY"},
	{regexp.MustCompile(`\bSYS\b`), "SYSTEMS"},
}

// NameVariations generates the search terms to try for a company name,
// original first, deduplicated, preserving order. Returns nil for a
// blank name.
func NameVariations(companyName string) []string {
	original := strings.TrimSpace(companyName)
	if original == "" {
		return nil
	}

	variations := []string{original}
	current := strings.ToUpper(original)
	if current != original {
		variations = append(variations, current)
	}

	for _, tr := range transformations {
		if !tr.pattern.MatchString(current) {
			continue
		}
		transformed := strings.TrimSpace(tr.pattern.ReplaceAllString(current, tr.replacement))
		if transformed != current {
			variations = append(variations, transformed)
		}
		current = transformed
	}

	seen := make(map[string]bool, len(variations))
	unique := variations[:0]
	for _, v := range variations {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}
