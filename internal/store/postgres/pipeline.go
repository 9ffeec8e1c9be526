package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// A company is "unprocessed" for a stage exactly when it has no child
// row for that stage; failed attempts wrote a row and are never
// retried. Batches go oldest first.

// UnprocessedForRegistry lists company numbers with no registry record.
func (s *Store) UnprocessedForRegistry(ctx context.Context, limit int) ([]lead.CompanyNumber, error) {
	rows, err := s.pool.Query(ctx, `
SELECT cn.id, cn.campaign_id, cn.company_number, cn.created_at
FROM company_numbers cn
LEFT JOIN registry_records rr ON rr.company_id = cn.id
WHERE rr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for registry: %w", err)
	}
	defer rows.Close()

	var out []lead.CompanyNumber
	for rows.Next() {
		var c lead.CompanyNumber
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.Number, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company number: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveRegistryRecord writes the audit row for a registry lookup.
func (s *Store) SaveRegistryRecord(ctx context.Context, rec lead.RegistryRecord) error {
	profile, err := json.Marshal(rec.Profile)
	if err != nil {
		return fmt.Errorf("marshal registry profile: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO registry_records (id, company_id, status, profile, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.CompanyID, string(rec.Status), profile, rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("registry record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert registry record: %w", err)
	}
	return nil
}

// UnprocessedForVAT lists companies with registry data and no VAT
// record yet.
func (s *Store) UnprocessedForVAT(ctx context.Context, limit int) ([]lead.VATCandidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT cn.id, cn.company_number, rr.profile->>'company_name'
FROM company_numbers cn
JOIN registry_records rr ON rr.company_id = cn.id AND rr.status = 'SUCCESS'
LEFT JOIN vat_records vr ON vr.company_id = cn.id
WHERE vr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for vat: %w", err)
	}
	defer rows.Close()

	var out []lead.VATCandidate
	for rows.Next() {
		var c lead.VATCandidate
		if err := rows.Scan(&c.CompanyID, &c.Number, &c.CompanyName); err != nil {
			return nil, fmt.Errorf("scan vat candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveVATRecord writes the audit row for a VAT lookup.
func (s *Store) SaveVATRecord(ctx context.Context, rec lead.VATRecord) error {
	terms, err := json.Marshal(rec.SearchTerms)
	if err != nil {
		return fmt.Errorf("marshal search terms: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO vat_records (id, company_id, vat_number, matched_name, search_terms, status, notes, proxy_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.CompanyID, rec.VATNumber, rec.MatchedName, terms,
		string(rec.Status), rec.Notes, rec.ProxyUsed, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("vat record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert vat record: %w", err)
	}
	return nil
}

// UnprocessedForHunt lists companies with registry data, a finished
// VAT attempt, and no hunt record yet.
func (s *Store) UnprocessedForHunt(ctx context.Context, limit int) ([]lead.HuntCandidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT cn.id, cn.company_number, rr.profile->>'company_name', COALESCE(vr.vat_number, '')
FROM company_numbers cn
JOIN registry_records rr ON rr.company_id = cn.id AND rr.status = 'SUCCESS'
JOIN vat_records vr ON vr.company_id = cn.id
LEFT JOIN hunt_records hr ON hr.company_id = cn.id
WHERE hr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for hunt: %w", err)
	}
	defer rows.Close()

	var out []lead.HuntCandidate
	for rows.Next() {
		var c lead.HuntCandidate
		if err := rows.Scan(&c.CompanyID, &c.Number, &c.CompanyName, &c.VATNumber); err != nil {
			return nil, fmt.Errorf("scan hunt candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveHuntRecord writes the audit row for a website hunting attempt.
func (s *Store) SaveHuntRecord(ctx context.Context, rec lead.HuntRecord) error {
	candidates, err := json.Marshal(rec.CandidateDomains)
	if err != nil {
		return fmt.Errorf("marshal candidate domains: %w", err)
	}
	rankings, err := json.Marshal(rec.Rankings)
	if err != nil {
		return fmt.Errorf("marshal rankings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO hunt_records (id, company_id, candidate_domains, rankings, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CompanyID, candidates, rankings, string(rec.Status), rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("hunt record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert hunt record: %w", err)
	}
	return nil
}

// GetHuntRecord fetches one hunt record by id.
func (s *Store) GetHuntRecord(ctx context.Context, id string) (lead.HuntRecord, error) {
	var (
		rec        lead.HuntRecord
		candidates []byte
		rankings   []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, company_id, candidate_domains, rankings, status, error_message,
	COALESCE(approved_domain, ''), COALESCE(approved_by, ''), approved_at, created_at
FROM hunt_records
WHERE id = $1`, id).Scan(
		&rec.ID, &rec.CompanyID, &candidates, &rankings, &rec.Status,
		&rec.ErrorMessage, &rec.ApprovedDomain, &rec.ApprovedBy, &rec.ApprovedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.HuntRecord{}, fmt.Errorf("hunt record %s: %w", id, lead.ErrNotFound)
	}
	if err != nil {
		return lead.HuntRecord{}, fmt.Errorf("select hunt record: %w", err)
	}
	if err := json.Unmarshal(candidates, &rec.CandidateDomains); err != nil {
		return lead.HuntRecord{}, fmt.Errorf("unmarshal candidate domains: %w", err)
	}
	if err := json.Unmarshal(rankings, &rec.Rankings); err != nil {
		return lead.HuntRecord{}, fmt.Errorf("unmarshal rankings: %w", err)
	}
	return rec, nil
}

// ApproveDomain records the human approval on a hunt record. The
// domain must be one of the record's candidates.
func (s *Store) ApproveDomain(ctx context.Context, huntID, domain, approvedBy string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE hunt_records
SET approved_domain = $2, approved_by = $3, approved_at = $4
WHERE id = $1 AND candidate_domains @> to_jsonb($2::text)`,
		huntID, domain, approvedBy, at)
	if err != nil {
		return fmt.Errorf("approve domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetHuntRecord(ctx, huntID); err != nil {
			return err
		}
		return fmt.Errorf("domain %q on hunt %s: %w", domain, huntID, lead.ErrNotCandidate)
	}
	return nil
}

// UnprocessedForContacts lists companies with an approved domain and
// no contact record yet.
func (s *Store) UnprocessedForContacts(ctx context.Context, limit int) ([]lead.ApprovedCandidate, error) {
	return s.unprocessedApproved(ctx, `
SELECT cn.id, cn.company_number, COALESCE(rr.profile->>'company_name', ''), hr.approved_domain
FROM company_numbers cn
JOIN hunt_records hr ON hr.company_id = cn.id AND COALESCE(hr.approved_domain, '') <> ''
LEFT JOIN registry_records rr ON rr.company_id = cn.id
LEFT JOIN contact_records cr ON cr.company_id = cn.id
WHERE cr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit, "contacts")
}

// UnprocessedForHunter lists companies with an approved domain and no
// Hunter record yet.
func (s *Store) UnprocessedForHunter(ctx context.Context, limit int) ([]lead.ApprovedCandidate, error) {
	return s.unprocessedApproved(ctx, `
SELECT cn.id, cn.company_number, COALESCE(rr.profile->>'company_name', ''), hr.approved_domain
FROM company_numbers cn
JOIN hunt_records hr ON hr.company_id = cn.id AND COALESCE(hr.approved_domain, '') <> ''
LEFT JOIN registry_records rr ON rr.company_id = cn.id
LEFT JOIN hunter_records hu ON hu.company_id = cn.id
WHERE hu.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit, "hunter")
}

func (s *Store) unprocessedApproved(ctx context.Context, query string, limit int, stage string) ([]lead.ApprovedCandidate, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for %s: %w", stage, err)
	}
	defer rows.Close()

	var out []lead.ApprovedCandidate
	for rows.Next() {
		var c lead.ApprovedCandidate
		if err := rows.Scan(&c.CompanyID, &c.Number, &c.CompanyName, &c.ApprovedDomain); err != nil {
			return nil, fmt.Errorf("scan approved candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveContactRecord writes the audit row for a contact extraction.
func (s *Store) SaveContactRecord(ctx context.Context, rec lead.ContactRecord) error {
	payload := struct {
		Phones    []string `json:"phones"`
		Emails    []string `json:"emails"`
		Facebook  []string `json:"facebook"`
		Instagram []string `json:"instagram"`
		LinkedIn  []string `json:"linkedin"`
	}{rec.Phones, rec.Emails, rec.Facebook, rec.Instagram, rec.LinkedIn}
	contacts, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO contact_records (id, company_id, domain, contacts, pages_crawled, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.CompanyID, rec.Domain, contacts, rec.PagesCrawled,
		string(rec.Status), rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("contact record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert contact record: %w", err)
	}
	return nil
}

// UnprocessedForLinkedIn lists companies with registry data and no
// LinkedIn record yet. An approved domain sharpens the query but is
// not required.
func (s *Store) UnprocessedForLinkedIn(ctx context.Context, limit int) ([]lead.LinkedInCandidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT cn.id, rr.profile->>'company_name', COALESCE(hr.approved_domain, '')
FROM company_numbers cn
JOIN registry_records rr ON rr.company_id = cn.id AND rr.status = 'SUCCESS'
LEFT JOIN hunt_records hr ON hr.company_id = cn.id
LEFT JOIN linkedin_records lr ON lr.company_id = cn.id
WHERE lr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for linkedin: %w", err)
	}
	defer rows.Close()

	var out []lead.LinkedInCandidate
	for rows.Next() {
		var c lead.LinkedInCandidate
		if err := rows.Scan(&c.CompanyID, &c.CompanyName, &c.ApprovedDomain); err != nil {
			return nil, fmt.Errorf("scan linkedin candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveLinkedInRecord writes the audit row for a LinkedIn discovery.
func (s *Store) SaveLinkedInRecord(ctx context.Context, rec lead.LinkedInRecord) error {
	companies, err := json.Marshal(rec.CompanyPages)
	if err != nil {
		return fmt.Errorf("marshal company pages: %w", err)
	}
	employees, err := json.Marshal(rec.EmployeeProfiles)
	if err != nil {
		return fmt.Errorf("marshal employee profiles: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO linkedin_records (id, company_id, company_pages, employee_profiles, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CompanyID, companies, employees, string(rec.Status), rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("linkedin record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert linkedin record: %w", err)
	}
	return nil
}

// SaveHunterRecord writes the audit row for a Hunter.io search.
func (s *Store) SaveHunterRecord(ctx context.Context, rec lead.HunterRecord) error {
	emails, err := json.Marshal(rec.Emails)
	if err != nil {
		return fmt.Errorf("marshal hunter emails: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO hunter_records (id, company_id, domain, emails, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CompanyID, rec.Domain, emails, string(rec.Status), rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("hunter record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert hunter record: %w", err)
	}
	return nil
}

// SaveEmployeeReview stores the human-approved employee profile URLs,
// replacing any earlier review for the company.
func (s *Store) SaveEmployeeReview(ctx context.Context, review lead.EmployeeReview) error {
	urls, err := json.Marshal(review.ApprovedURLs)
	if err != nil {
		return fmt.Errorf("marshal approved urls: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO employee_reviews (id, company_id, approved_urls, reviewed_by, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (company_id) DO UPDATE
SET approved_urls = EXCLUDED.approved_urls,
	reviewed_by = EXCLUDED.reviewed_by,
	created_at = EXCLUDED.created_at`,
		review.ID, review.CompanyID, urls, review.ReviewedBy, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert employee review: %w", err)
	}
	return nil
}

// UnprocessedForSnov lists companies with a reviewed employee list and
// no Snov record yet.
func (s *Store) UnprocessedForSnov(ctx context.Context, limit int) ([]lead.SnovCandidate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT cn.id, er.approved_urls
FROM company_numbers cn
JOIN employee_reviews er ON er.company_id = cn.id
LEFT JOIN snov_records sr ON sr.company_id = cn.id
WHERE sr.id IS NULL
ORDER BY cn.created_at
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed for snov: %w", err)
	}
	defer rows.Close()

	var out []lead.SnovCandidate
	for rows.Next() {
		var (
			c    lead.SnovCandidate
			urls []byte
		)
		if err := rows.Scan(&c.CompanyID, &urls); err != nil {
			return nil, fmt.Errorf("scan snov candidate: %w", err)
		}
		if err := json.Unmarshal(urls, &c.ApprovedURLs); err != nil {
			return nil, fmt.Errorf("unmarshal approved urls: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveSnovRecord writes the audit row for a Snov extraction.
func (s *Store) SaveSnovRecord(ctx context.Context, rec lead.SnovRecord) error {
	profiles, err := json.Marshal(rec.Profiles)
	if err != nil {
		return fmt.Errorf("marshal snov profiles: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO snov_records (id, company_id, profiles, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.CompanyID, profiles, string(rec.Status), rec.ErrorMessage, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("snov record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert snov record: %w", err)
	}
	return nil
}
