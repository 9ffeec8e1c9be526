package vat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var vatNumberFormat = regexp.MustCompile(`^GB\d{9}$`)

// tableRow is one parsed result row from the lookup service.
type tableRow struct {
	CompanyName string
	VATNumber   string
}

type responseKind int

const (
	responseUnknown responseKind = iota
	responseSoftBlock
	responseNotFound
	responseResults
)

var softBlockMarkers = []string{
	"sorry it looks like you might be a robot",
	"too many requests",
}

const notFoundMarker = "sorry we were unable to find any matches for your search"

// classifyResponse detects soft blocks and empty searches before any
// parsing is attempted.
func classifyResponse(html string) responseKind {
	lower := strings.ToLower(html)
	for _, marker := range softBlockMarkers {
		if strings.Contains(lower, marker) {
			return responseSoftBlock
		}
	}
	if strings.Contains(lower, notFoundMarker) {
		return responseNotFound
	}
	if strings.Contains(lower, "<table border=1") && strings.Contains(html, "VAT Number") {
		return responseResults
	}
	return responseUnknown
}

// parseResults extracts (company name, VAT number) pairs from the
// bordered results table.
func parseResults(html string) ([]tableRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}
	table := doc.Find(`table[border="1"]`).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("results table not found")
	}

	var rows []tableRow
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		vatCell := cells.Eq(2)
		vatNumber := strings.TrimSpace(vatCell.Find("a").First().Text())
		if vatNumber == "" {
			vatNumber = strings.TrimSpace(vatCell.Text())
		}
		if name == "" || vatNumber == "" {
			return
		}
		rows = append(rows, tableRow{CompanyName: name, VATNumber: vatNumber})
	})
	return rows, nil
}

// matchRow picks the row for the search term. A single row wins
// outright; multiple rows require an exact name match after upper-case
// and space normalization.
func matchRow(rows []tableRow, searchTerm string) (tableRow, bool) {
	if len(rows) == 0 {
		return tableRow{}, false
	}
	if len(rows) == 1 {
		return rows[0], true
	}
	want := normalizeName(searchTerm)
	for _, row := range rows {
		if normalizeName(row.CompanyName) == want {
			return row, true
		}
	}
	return tableRow{}, false
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// ValidVATNumber reports whether the value matches the GB format.
func ValidVATNumber(v string) bool {
	return vatNumberFormat.MatchString(strings.ReplaceAll(strings.ToUpper(v), " ", ""))
}
