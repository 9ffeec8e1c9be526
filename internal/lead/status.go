package lead

// Stage identifies one step of the enrichment pipeline.
type Stage string

// Pipeline stages, in gating order.
const (
	StageRegistry Stage = "registry"
	StageVAT      Stage = "vat"
	StageHunt     Stage = "hunt"
	StageContacts Stage = "contacts"
	StageLinkedIn Stage = "linkedin"
	StageHunter   Stage = "hunter"
	StageSnov     Stage = "snov"
)

// RegistryStatus is the outcome of a Companies House lookup.
type RegistryStatus string

const (
	RegistrySuccess              RegistryStatus = "SUCCESS"
	RegistryInvalidCompanyNumber RegistryStatus = "INVALID_COMPANY_NUMBER"
	RegistryCompanyNotFound      RegistryStatus = "COMPANY_NOT_FOUND"
	RegistryAPIError             RegistryStatus = "API_ERROR"
	RegistryExtractionError      RegistryStatus = "EXTRACTION_ERROR"
	RegistryRateLimitError       RegistryStatus = "RATE_LIMIT_ERROR"
)

// VATStatus is the outcome of a VAT lookup.
type VATStatus string

const (
	VATSuccess                VATStatus = "SUCCESS"
	VATInvalidCompanyName     VATStatus = "INVALID_COMPANY_NAME"
	VATNotFound               VATStatus = "VAT_NOT_FOUND"
	VATServiceBlocked         VATStatus = "SERVICE_BLOCKED"
	VATNetworkError           VATStatus = "NETWORK_ERROR"
	VATParsingError           VATStatus = "PARSING_ERROR"
	VATMultipleResultsNoMatch VATStatus = "MULTIPLE_RESULTS_NO_MATCH"
)

// HuntStatus is the outcome of a website hunting attempt.
type HuntStatus string

const (
	HuntSuccess           HuntStatus = "SUCCESS"
	HuntPartialSuccess    HuntStatus = "PARTIAL_SUCCESS"
	HuntNoWebsitesFound   HuntStatus = "NO_WEBSITES_FOUND"
	HuntNoMatchesFound    HuntStatus = "NO_MATCHES_FOUND"
	HuntInvalidIdentifier HuntStatus = "INVALID_IDENTIFIER"
	HuntQuotaExceeded     HuntStatus = "QUOTA_EXCEEDED"
	HuntAPIError          HuntStatus = "API_ERROR"
	HuntNetworkError      HuntStatus = "NETWORK_ERROR"
	HuntParsingError      HuntStatus = "PARSING_ERROR"
	HuntCrawlError        HuntStatus = "CRAWL_ERROR"
	HuntTimeoutError      HuntStatus = "TIMEOUT_ERROR"
)

// ContactStatus is the outcome of a contact extraction attempt.
type ContactStatus string

const (
	ContactSuccess         ContactStatus = "SUCCESS"
	ContactNoContactsFound ContactStatus = "NO_CONTACTS_FOUND"
	ContactCrawlError      ContactStatus = "CRAWL_ERROR"
	ContactNetworkError    ContactStatus = "NETWORK_ERROR"
)

// LinkedInStatus is the outcome of a LinkedIn discovery attempt.
type LinkedInStatus string

const (
	LinkedInSuccess        LinkedInStatus = "SUCCESS"
	LinkedInPartialSuccess LinkedInStatus = "PARTIAL_SUCCESS"
	LinkedInNoResultsFound LinkedInStatus = "NO_RESULTS_FOUND"
	LinkedInQuotaExceeded  LinkedInStatus = "QUOTA_EXCEEDED"
	LinkedInAPIError       LinkedInStatus = "API_ERROR"
	LinkedInNetworkError   LinkedInStatus = "NETWORK_ERROR"
)

// HunterStatus is the outcome of a Hunter.io domain search.
type HunterStatus string

const (
	HunterSuccess         HunterStatus = "SUCCESS"
	HunterNoEmailsFound   HunterStatus = "NO_EMAILS_FOUND"
	HunterAPIError        HunterStatus = "API_ERROR"
	HunterProcessingError HunterStatus = "PROCESSING_ERROR"
)

// SnovStatus is the outcome of a Snov.io extraction attempt.
type SnovStatus string

const (
	SnovSuccess        SnovStatus = "SUCCESS"
	SnovPartialSuccess SnovStatus = "PARTIAL_SUCCESS"
	SnovNoEmailsFound  SnovStatus = "NO_EMAILS_FOUND"
	SnovAPIError       SnovStatus = "API_ERROR"
)

// Per-profile Snov outcomes.
const (
	SnovProfileSuccess  = "SUCCESS"
	SnovProfileNotFound = "NOT_FOUND"
	SnovProfileAPIError = "API_ERROR"
)
