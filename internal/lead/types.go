// Package lead defines the core domain types shared across the
// enrichment pipeline: campaigns, company numbers, per-stage lookup
// records and the interfaces the pipeline tasks depend on.
package lead

import "time"

// Sentinel values used when the registry omits a field.
const (
	NotFound     = "NOT_FOUND"
	NotAvailable = "NOT_AVAILABLE"
)

// Campaign groups company numbers for enrichment.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyNumber is a single UK company registration number within a campaign.
type CompanyNumber struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Number     string    `json:"company_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisteredAddress holds the registered office address components.
type RegisteredAddress struct {
	CareOf       string `json:"care_of,omitempty"`
	PremisesName string `json:"premises,omitempty"`
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// RegistryProfile is the extracted Companies House view of a company.
type RegistryProfile struct {
	CompanyName          string            `json:"company_name"`
	CompanyStatus        string            `json:"company_status"`
	CompanyType          string            `json:"company_type"`
	Jurisdiction         string            `json:"jurisdiction"`
	DateOfCreation       string            `json:"date_of_creation"`
	SICCodes             []string          `json:"sic_codes"`
	Address              RegisteredAddress `json:"registered_office_address"`
	HasInsolvencyHistory bool              `json:"has_insolvency_history"`
	HasCharges           bool              `json:"has_charges"`
	UndeliverableAddress bool              `json:"undeliverable_registered_office_address"`
	LastAccountsDate     string            `json:"last_accounts_date"`
	NextAccountsDue      string            `json:"next_accounts_due"`
	ConfirmationLastMade string            `json:"confirmation_statement_last_made"`
	ConfirmationNextDue  string            `json:"confirmation_statement_next_due"`
	ActiveOfficerCount   int               `json:"active_officer_count"`
	TotalOfficerCount    int               `json:"total_officer_count"`
	ResignedOfficerCount int               `json:"resigned_officer_count"`
	KeyOfficers          string            `json:"key_officers"`
}

// RegistryRecord is the audit row written for every registry lookup attempt.
type RegistryRecord struct {
	ID           string          `json:"id"`
	CompanyID    string          `json:"company_id"`
	Status       RegistryStatus  `json:"status"`
	Profile      RegistryProfile `json:"profile"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VATRecord is the audit row for a VAT lookup attempt.
type VATRecord struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	VATNumber   string    `json:"vat_number,omitempty"`
	MatchedName string    `json:"matched_name,omitempty"`
	SearchTerms []string  `json:"search_terms"`
	Status      VATStatus `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	ProxyUsed   bool      `json:"proxy_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// DomainRanking scores one candidate domain from the hunting crawl.
type DomainRanking struct {
	Domain        string  `json:"domain"`
	Score         float64 `json:"score"`
	NumberMatched bool    `json:"number_matched"`
	VATMatched    bool    `json:"vat_matched"`
	PagesCrawled  int     `json:"pages_crawled"`
}

// HuntRecord is the audit row for a website hunting attempt, plus the
// human approval gate fields.
type HuntRecord struct {
	ID               string          `json:"id"`
	CompanyID        string          `json:"company_id"`
	CandidateDomains []string        `json:"candidate_domains"`
	Rankings         []DomainRanking `json:"rankings"`
	Status           HuntStatus      `json:"status"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	ApprovedDomain   string          `json:"approved_domain,omitempty"`
	ApprovedBy       string          `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ContactRecord is the audit row for a contact extraction attempt.
type ContactRecord struct {
	ID           string        `json:"id"`
	CompanyID    string        `json:"company_id"`
	Domain       string        `json:"domain"`
	Phones       []string      `json:"phones"`
	Emails       []string      `json:"emails"`
	Facebook     []string      `json:"facebook"`
	Instagram    []string      `json:"instagram"`
	LinkedIn     []string      `json:"linkedin"`
	PagesCrawled int           `json:"pages_crawled"`
	Status       ContactStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ScoredLink is a LinkedIn URL with its relevance score.
type ScoredLink struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Score       int    `json:"score"`
}

// LinkedInRecord is the audit row for a LinkedIn discovery attempt.
type LinkedInRecord struct {
	ID               string         `json:"id"`
	CompanyID        string         `json:"company_id"`
	CompanyPages     []ScoredLink   `json:"company_pages"`
	EmployeeProfiles []ScoredLink   `json:"employee_profiles"`
	Status           LinkedInStatus `json:"status"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// HunterEmail is one email from a Hunter.io domain search.
type HunterEmail struct {
	Value      string `json:"value"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Position   string `json:"position,omitempty"`
	Confidence int    `json:"confidence"`
}

// HunterRecord is the audit row for a Hunter.io domain search.
type HunterRecord struct {
	ID           string        `json:"id"`
	CompanyID    string        `json:"company_id"`
	Domain       string        `json:"domain"`
	Emails       []HunterEmail `json:"emails_found"`
	Status       HunterStatus  `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// EmployeeReview records the human-approved employee profile URLs for a
// company. Its presence gates the Snov.io extraction task.
type EmployeeReview struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	ApprovedURLs []string  `json:"approved_employee_urls"`
	ReviewedBy   string    `json:"reviewed_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnovProfile is the extraction result for one approved profile URL.
type SnovProfile struct {
	ProfileURL string   `json:"profile_url"`
	Position   string   `json:"position,omitempty"`
	Emails     []string `json:"emails"`
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
}

// SnovRecord is the audit row for a Snov.io extraction attempt.
type SnovRecord struct {
	ID           string        `json:"id"`
	CompanyID    string        `json:"company_id"`
	Profiles     []SnovProfile `json:"profiles"`
	Status       SnovStatus    `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SERPQuota is the singleton row tracking remaining ZenSERP credits.
type SERPQuota struct {
	AvailableCredits float64   `json:"available_credits"`
	LastUpdated      time.Time `json:"last_updated"`
}

// StageProgress counts processed companies for one pipeline stage.
type StageProgress struct {
	Stage Stage `json:"stage"`
	Done  int   `json:"done"`
	Total int   `json:"total"`
}

// CampaignProgress summarizes a campaign across all stages.
type CampaignProgress struct {
	CampaignID string          `json:"campaign_id"`
	Companies  int             `json:"companies"`
	Stages     []StageProgress `json:"stages"`
}

// VATCandidate is a company ready for VAT lookup.
type VATCandidate struct {
	CompanyID   string
	Number      string
	CompanyName string
}

// HuntCandidate is a company ready for website hunting.
type HuntCandidate struct {
	CompanyID   string
	Number      string
	CompanyName string
	VATNumber   string
}

// ApprovedCandidate is a company whose hunt result carries a
// human-approved domain, ready for contact extraction or Hunter.io.
type ApprovedCandidate struct {
	CompanyID      string
	Number         string
	CompanyName    string
	ApprovedDomain string
}

// LinkedInCandidate is a company ready for LinkedIn discovery.
type LinkedInCandidate struct {
	CompanyID      string
	CompanyName    string
	ApprovedDomain string
}

// SnovCandidate is a company with reviewed employee profiles and no
// Snov record yet.
type SnovCandidate struct {
	CompanyID    string
	ApprovedURLs []string
}

// StageEvent is published after a pipeline stage writes its record.
type StageEvent struct {
	CompanyID string `json:"company_id"`
	Stage     Stage  `json:"stage"`
	Status    string `json:"status"`
}
