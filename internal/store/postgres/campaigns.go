package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// CreateCampaign inserts a campaign row.
func (s *Store) CreateCampaign(ctx context.Context, c lead.Campaign) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO campaigns (id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("campaign %q: %w", c.Name, lead.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetCampaign fetches one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (lead.Campaign, error) {
	var c lead.Campaign
	err := s.pool.QueryRow(ctx, `
SELECT id, name, created_at, updated_at
FROM campaigns
WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Campaign{}, fmt.Errorf("campaign %s: %w", id, lead.ErrNotFound)
	}
	if err != nil {
		return lead.Campaign{}, fmt.Errorf("select campaign: %w", err)
	}
	return c, nil
}

// AddCompanyNumbers inserts numbers into a campaign, skipping ones the
// campaign already has, and returns how many were actually added.
func (s *Store) AddCompanyNumbers(ctx context.Context, campaignID string, numbers []string) (int, error) {
	added := 0
	for _, number := range numbers {
		tag, err := s.pool.Exec(ctx, `
INSERT INTO company_numbers (id, campaign_id, company_number, created_at)
VALUES (gen_random_uuid(), $1, $2, now())
ON CONFLICT (campaign_id, company_number) DO NOTHING`,
			campaignID, number)
		if err != nil {
			return added, fmt.Errorf("insert company number %s: %w", number, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

// GetCompany fetches one company number row by id.
func (s *Store) GetCompany(ctx context.Context, id string) (lead.CompanyNumber, error) {
	var c lead.CompanyNumber
	err := s.pool.QueryRow(ctx, `
SELECT id, campaign_id, company_number, created_at
FROM company_numbers
WHERE id = $1`, id).Scan(&c.ID, &c.CampaignID, &c.Number, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.CompanyNumber{}, fmt.Errorf("company %s: %w", id, lead.ErrNotFound)
	}
	if err != nil {
		return lead.CompanyNumber{}, fmt.Errorf("select company: %w", err)
	}
	return c, nil
}

// Progress counts, per stage, how many of the campaign's companies
// already have an audit row.
func (s *Store) Progress(ctx context.Context, campaignID string) (lead.CampaignProgress, error) {
	progress := lead.CampaignProgress{CampaignID: campaignID}
	var registry, vat, hunt, contacts, linkedin, hunter, snov int
	err := s.pool.QueryRow(ctx, `
SELECT
	COUNT(*),
	COUNT(rr.id),
	COUNT(vr.id),
	COUNT(hr.id),
	COUNT(cr.id),
	COUNT(lr.id),
	COUNT(hu.id),
	COUNT(sr.id)
FROM company_numbers cn
LEFT JOIN registry_records rr ON rr.company_id = cn.id
LEFT JOIN vat_records     vr ON vr.company_id = cn.id
LEFT JOIN hunt_records    hr ON hr.company_id = cn.id
LEFT JOIN contact_records cr ON cr.company_id = cn.id
LEFT JOIN linkedin_records lr ON lr.company_id = cn.id
LEFT JOIN hunter_records  hu ON hu.company_id = cn.id
LEFT JOIN snov_records    sr ON sr.company_id = cn.id
WHERE cn.campaign_id = $1`, campaignID).
		Scan(&progress.Companies, &registry, &vat, &hunt, &contacts, &linkedin, &hunter, &snov)
	if err != nil {
		return lead.CampaignProgress{}, fmt.Errorf("select campaign progress: %w", err)
	}
	progress.Stages = []lead.StageProgress{
		{Stage: lead.StageRegistry, Done: registry, Total: progress.Companies},
		{Stage: lead.StageVAT, Done: vat, Total: progress.Companies},
		{Stage: lead.StageHunt, Done: hunt, Total: progress.Companies},
		{Stage: lead.StageContacts, Done: contacts, Total: progress.Companies},
		{Stage: lead.StageLinkedIn, Done: linkedin, Total: progress.Companies},
		{Stage: lead.StageHunter, Done: hunter, Total: progress.Companies},
		{Stage: lead.StageSnov, Done: snov, Total: progress.Companies},
	}
	return progress, nil
}
