// Package memory implements the persistence surface in process
// memory, for tests and single-node trials.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// Store keeps every record in maps keyed by company id. One audit row
// per company and stage, like the unique constraints in Postgres.
type Store struct {
	mu sync.RWMutex

	campaigns map[string]lead.Campaign
	companies map[string]lead.CompanyNumber

	registry map[string]lead.RegistryRecord
	vat      map[string]lead.VATRecord
	hunts    map[string]lead.HuntRecord
	contacts map[string]lead.ContactRecord
	linkedin map[string]lead.LinkedInRecord
	hunter   map[string]lead.HunterRecord
	reviews  map[string]lead.EmployeeReview
	snov     map[string]lead.SnovRecord

	searchKeywords     []string
	excludedDomains    []string
	blacklistedDomains []string

	quota lead.SERPQuota
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		campaigns: map[string]lead.Campaign{},
		companies: map[string]lead.CompanyNumber{},
		registry:  map[string]lead.RegistryRecord{},
		vat:       map[string]lead.VATRecord{},
		hunts:     map[string]lead.HuntRecord{},
		contacts:  map[string]lead.ContactRecord{},
		linkedin:  map[string]lead.LinkedInRecord{},
		hunter:    map[string]lead.HunterRecord{},
		reviews:   map[string]lead.EmployeeReview{},
		snov:      map[string]lead.SnovRecord{},
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// SetSettings replaces the operator-managed lookup settings.
func (s *Store) SetSettings(keywords, excluded, blacklisted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchKeywords = append([]string(nil), keywords...)
	s.excludedDomains = append([]string(nil), excluded...)
	s.blacklistedDomains = append([]string(nil), blacklisted...)
}

// CreateCampaign stores a campaign.
func (s *Store) CreateCampaign(_ context.Context, c lead.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; ok {
		return fmt.Errorf("campaign %s: %w", c.ID, lead.ErrDuplicate)
	}
	s.campaigns[c.ID] = c
	return nil
}

// GetCampaign fetches a campaign by id.
func (s *Store) GetCampaign(_ context.Context, id string) (lead.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return lead.Campaign{}, fmt.Errorf("campaign %s: %w", id, lead.ErrNotFound)
	}
	return c, nil
}

// AddCompanyNumbers adds numbers to a campaign, skipping duplicates.
func (s *Store) AddCompanyNumbers(_ context.Context, campaignID string, numbers []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := map[string]bool{}
	for _, c := range s.companies {
		if c.CampaignID == campaignID {
			existing[c.Number] = true
		}
	}
	added := 0
	now := time.Now()
	for _, number := range numbers {
		if existing[number] {
			continue
		}
		existing[number] = true
		id := fmt.Sprintf("cn-%s-%s", campaignID, number)
		s.companies[id] = lead.CompanyNumber{
			ID:         id,
			CampaignID: campaignID,
			Number:     number,
			CreatedAt:  now.Add(time.Duration(len(s.companies)) * time.Microsecond),
		}
		added++
	}
	return added, nil
}

// GetCompany fetches a company number row by id.
func (s *Store) GetCompany(_ context.Context, id string) (lead.CompanyNumber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return lead.CompanyNumber{}, fmt.Errorf("company %s: %w", id, lead.ErrNotFound)
	}
	return c, nil
}

// Progress counts processed companies per stage for a campaign.
func (s *Store) Progress(_ context.Context, campaignID string) (lead.CampaignProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress := lead.CampaignProgress{CampaignID: campaignID}
	counts := map[lead.Stage]int{}
	for _, c := range s.companies {
		if c.CampaignID != campaignID {
			continue
		}
		progress.Companies++
		if _, ok := s.registry[c.ID]; ok {
			counts[lead.StageRegistry]++
		}
		if _, ok := s.vat[c.ID]; ok {
			counts[lead.StageVAT]++
		}
		if _, ok := s.hunts[c.ID]; ok {
			counts[lead.StageHunt]++
		}
		if _, ok := s.contacts[c.ID]; ok {
			counts[lead.StageContacts]++
		}
		if _, ok := s.linkedin[c.ID]; ok {
			counts[lead.StageLinkedIn]++
		}
		if _, ok := s.hunter[c.ID]; ok {
			counts[lead.StageHunter]++
		}
		if _, ok := s.snov[c.ID]; ok {
			counts[lead.StageSnov]++
		}
	}
	for _, stage := range []lead.Stage{
		lead.StageRegistry, lead.StageVAT, lead.StageHunt, lead.StageContacts,
		lead.StageLinkedIn, lead.StageHunter, lead.StageSnov,
	} {
		progress.Stages = append(progress.Stages, lead.StageProgress{
			Stage: stage, Done: counts[stage], Total: progress.Companies,
		})
	}
	return progress, nil
}

// companiesOldestFirst snapshots the companies sorted by creation time.
func (s *Store) companiesOldestFirst() []lead.CompanyNumber {
	out := make([]lead.CompanyNumber, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

// UnprocessedForRegistry lists companies with no registry record.
func (s *Store) UnprocessedForRegistry(_ context.Context, limit int) ([]lead.CompanyNumber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.CompanyNumber
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		if _, done := s.registry[c.ID]; !done {
			out = append(out, c)
		}
	}
	return out, nil
}

// SaveRegistryRecord writes the registry audit row.
func (s *Store) SaveRegistryRecord(_ context.Context, rec lead.RegistryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[rec.CompanyID]; ok {
		return fmt.Errorf("registry record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.registry[rec.CompanyID] = rec
	return nil
}

// UnprocessedForVAT lists companies with registry data and no VAT record.
func (s *Store) UnprocessedForVAT(_ context.Context, limit int) ([]lead.VATCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.VATCandidate
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		reg, ok := s.registry[c.ID]
		if !ok || reg.Status != lead.RegistrySuccess {
			continue
		}
		if _, done := s.vat[c.ID]; done {
			continue
		}
		out = append(out, lead.VATCandidate{
			CompanyID:   c.ID,
			Number:      c.Number,
			CompanyName: reg.Profile.CompanyName,
		})
	}
	return out, nil
}

// SaveVATRecord writes the VAT audit row.
func (s *Store) SaveVATRecord(_ context.Context, rec lead.VATRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vat[rec.CompanyID]; ok {
		return fmt.Errorf("vat record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.vat[rec.CompanyID] = rec
	return nil
}

// UnprocessedForHunt lists companies past registry and VAT with no
// hunt record yet.
func (s *Store) UnprocessedForHunt(_ context.Context, limit int) ([]lead.HuntCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.HuntCandidate
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		reg, ok := s.registry[c.ID]
		if !ok || reg.Status != lead.RegistrySuccess {
			continue
		}
		vat, ok := s.vat[c.ID]
		if !ok {
			continue
		}
		if _, done := s.huntByCompany(c.ID); done {
			continue
		}
		out = append(out, lead.HuntCandidate{
			CompanyID:   c.ID,
			Number:      c.Number,
			CompanyName: reg.Profile.CompanyName,
			VATNumber:   vat.VATNumber,
		})
	}
	return out, nil
}

func (s *Store) huntByCompany(companyID string) (lead.HuntRecord, bool) {
	rec, ok := s.hunts[companyID]
	return rec, ok
}

// SaveHuntRecord writes the hunt audit row.
func (s *Store) SaveHuntRecord(_ context.Context, rec lead.HuntRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunts[rec.CompanyID]; ok {
		return fmt.Errorf("hunt record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.hunts[rec.CompanyID] = rec
	return nil
}

// GetHuntRecord fetches a hunt record by its own id.
func (s *Store) GetHuntRecord(_ context.Context, id string) (lead.HuntRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.hunts {
		if rec.ID == id {
			return rec, nil
		}
	}
	return lead.HuntRecord{}, fmt.Errorf("hunt record %s: %w", id, lead.ErrNotFound)
}

// ApproveDomain sets the approved domain on a hunt record.
func (s *Store) ApproveDomain(_ context.Context, huntID, domain, approvedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for companyID, rec := range s.hunts {
		if rec.ID != huntID {
			continue
		}
		for _, candidate := range rec.CandidateDomains {
			if candidate == domain {
				rec.ApprovedDomain = domain
				rec.ApprovedBy = approvedBy
				approvedAt := at
				rec.ApprovedAt = &approvedAt
				s.hunts[companyID] = rec
				return nil
			}
		}
		return fmt.Errorf("domain %q on hunt %s: %w", domain, huntID, lead.ErrNotCandidate)
	}
	return fmt.Errorf("hunt record %s: %w", huntID, lead.ErrNotFound)
}

// UnprocessedForContacts lists approved companies with no contact record.
func (s *Store) UnprocessedForContacts(_ context.Context, limit int) ([]lead.ApprovedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unprocessedApproved(limit, func(companyID string) bool {
		_, done := s.contacts[companyID]
		return done
	}), nil
}

// UnprocessedForHunter lists approved companies with no Hunter record.
func (s *Store) UnprocessedForHunter(_ context.Context, limit int) ([]lead.ApprovedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unprocessedApproved(limit, func(companyID string) bool {
		_, done := s.hunter[companyID]
		return done
	}), nil
}

func (s *Store) unprocessedApproved(limit int, processed func(companyID string) bool) []lead.ApprovedCandidate {
	var out []lead.ApprovedCandidate
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		hunt, ok := s.hunts[c.ID]
		if !ok || hunt.ApprovedDomain == "" {
			continue
		}
		if processed(c.ID) {
			continue
		}
		name := ""
		if reg, ok := s.registry[c.ID]; ok {
			name = reg.Profile.CompanyName
		}
		out = append(out, lead.ApprovedCandidate{
			CompanyID:      c.ID,
			Number:         c.Number,
			CompanyName:    name,
			ApprovedDomain: hunt.ApprovedDomain,
		})
	}
	return out
}

// SaveContactRecord writes the contact audit row.
func (s *Store) SaveContactRecord(_ context.Context, rec lead.ContactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[rec.CompanyID]; ok {
		return fmt.Errorf("contact record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.contacts[rec.CompanyID] = rec
	return nil
}

// UnprocessedForLinkedIn lists companies with registry data and no
// LinkedIn record yet.
func (s *Store) UnprocessedForLinkedIn(_ context.Context, limit int) ([]lead.LinkedInCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.LinkedInCandidate
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		reg, ok := s.registry[c.ID]
		if !ok || reg.Status != lead.RegistrySuccess {
			continue
		}
		if _, done := s.linkedin[c.ID]; done {
			continue
		}
		domain := ""
		if hunt, ok := s.hunts[c.ID]; ok {
			domain = hunt.ApprovedDomain
		}
		out = append(out, lead.LinkedInCandidate{
			CompanyID:      c.ID,
			CompanyName:    reg.Profile.CompanyName,
			ApprovedDomain: domain,
		})
	}
	return out, nil
}

// SaveLinkedInRecord writes the LinkedIn audit row.
func (s *Store) SaveLinkedInRecord(_ context.Context, rec lead.LinkedInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.linkedin[rec.CompanyID]; ok {
		return fmt.Errorf("linkedin record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.linkedin[rec.CompanyID] = rec
	return nil
}

// SaveHunterRecord writes the Hunter audit row.
func (s *Store) SaveHunterRecord(_ context.Context, rec lead.HunterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hunter[rec.CompanyID]; ok {
		return fmt.Errorf("hunter record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.hunter[rec.CompanyID] = rec
	return nil
}

// SaveEmployeeReview stores the employee review, replacing an earlier
// one for the same company.
func (s *Store) SaveEmployeeReview(_ context.Context, review lead.EmployeeReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[review.CompanyID] = review
	return nil
}

// UnprocessedForSnov lists reviewed companies with no Snov record.
func (s *Store) UnprocessedForSnov(_ context.Context, limit int) ([]lead.SnovCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.SnovCandidate
	for _, c := range s.companiesOldestFirst() {
		if len(out) >= limit {
			break
		}
		review, ok := s.reviews[c.ID]
		if !ok {
			continue
		}
		if _, done := s.snov[c.ID]; done {
			continue
		}
		out = append(out, lead.SnovCandidate{
			CompanyID:    c.ID,
			ApprovedURLs: append([]string(nil), review.ApprovedURLs...),
		})
	}
	return out, nil
}

// SaveSnovRecord writes the Snov audit row.
func (s *Store) SaveSnovRecord(_ context.Context, rec lead.SnovRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snov[rec.CompanyID]; ok {
		return fmt.Errorf("snov record for company %s: %w", rec.CompanyID, lead.ErrDuplicate)
	}
	s.snov[rec.CompanyID] = rec
	return nil
}

// ListSearchKeywords returns the configured hunting keywords.
func (s *Store) ListSearchKeywords(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.searchKeywords...), nil
}

// ListExcludedDomains returns the configured -site: exclusions.
func (s *Store) ListExcludedDomains(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.excludedDomains...), nil
}

// ListBlacklistedDomains returns the configured result blacklist.
func (s *Store) ListBlacklistedDomains(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.blacklistedDomains...), nil
}

// GetSERPQuota returns the stored quota snapshot.
func (s *Store) GetSERPQuota(_ context.Context) (lead.SERPQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quota, nil
}

// SetSERPQuota stores the quota snapshot.
func (s *Store) SetSERPQuota(_ context.Context, q lead.SERPQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota = q
	return nil
}
