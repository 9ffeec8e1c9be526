package lead

import (
	"context"
	"time"
)

// CampaignStore manages campaigns and their company numbers.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	// AddCompanyNumbers inserts numbers into a campaign, skipping
	// duplicates, and returns how many were actually added.
	AddCompanyNumbers(ctx context.Context, campaignID string, numbers []string) (int, error)
	GetCompany(ctx context.Context, id string) (CompanyNumber, error)
	Progress(ctx context.Context, campaignID string) (CampaignProgress, error)
}

// RegistryStore feeds and records the registry lookup stage.
type RegistryStore interface {
	// UnprocessedForRegistry lists company numbers with no registry
	// record yet, oldest first, at most limit rows.
	UnprocessedForRegistry(ctx context.Context, limit int) ([]CompanyNumber, error)
	SaveRegistryRecord(ctx context.Context, rec RegistryRecord) error
}

// VATStore feeds and records the VAT lookup stage.
type VATStore interface {
	UnprocessedForVAT(ctx context.Context, limit int) ([]VATCandidate, error)
	SaveVATRecord(ctx context.Context, rec VATRecord) error
}

// HuntStore feeds and records website hunting, and carries the human
// approval gate.
type HuntStore interface {
	UnprocessedForHunt(ctx context.Context, limit int) ([]HuntCandidate, error)
	SaveHuntRecord(ctx context.Context, rec HuntRecord) error
	GetHuntRecord(ctx context.Context, id string) (HuntRecord, error)
	// ApproveDomain sets the approved domain on a hunt record. The
	// domain must be one of the record's candidates.
	ApproveDomain(ctx context.Context, huntID, domain, approvedBy string, at time.Time) error
}

// ContactStore feeds and records contact extraction.
type ContactStore interface {
	UnprocessedForContacts(ctx context.Context, limit int) ([]ApprovedCandidate, error)
	SaveContactRecord(ctx context.Context, rec ContactRecord) error
}

// LinkedInStore feeds and records LinkedIn discovery and the employee
// review gate.
type LinkedInStore interface {
	UnprocessedForLinkedIn(ctx context.Context, limit int) ([]LinkedInCandidate, error)
	SaveLinkedInRecord(ctx context.Context, rec LinkedInRecord) error
	SaveEmployeeReview(ctx context.Context, review EmployeeReview) error
	UnprocessedForSnov(ctx context.Context, limit int) ([]SnovCandidate, error)
	SaveSnovRecord(ctx context.Context, rec SnovRecord) error
}

// HunterStore feeds and records Hunter.io domain searches.
type HunterStore interface {
	UnprocessedForHunter(ctx context.Context, limit int) ([]ApprovedCandidate, error)
	SaveHunterRecord(ctx context.Context, rec HunterRecord) error
}

// SettingsStore holds the operator-managed lookup settings.
type SettingsStore interface {
	ListSearchKeywords(ctx context.Context) ([]string, error)
	ListExcludedDomains(ctx context.Context) ([]string, error)
	ListBlacklistedDomains(ctx context.Context) ([]string, error)
}

// QuotaStore persists the singleton ZenSERP quota row.
type QuotaStore interface {
	GetSERPQuota(ctx context.Context) (SERPQuota, error)
	SetSERPQuota(ctx context.Context, q SERPQuota) error
}

// Store is the full persistence surface, implemented by the Postgres
// and in-memory providers. Tasks depend on the narrow interfaces above.
type Store interface {
	CampaignStore
	RegistryStore
	VATStore
	HuntStore
	ContactStore
	LinkedInStore
	HunterStore
	SettingsStore
	QuotaStore
	Close()
}

// Locker provides singleton-task locks. TryAcquire returns false when
// another holder owns an unexpired lease; duplicate triggers are
// silently skipped, never errors.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates identifiers for new records.
type IDGenerator interface {
	NewID() (string, error)
}

// Publisher emits stage events after a record is written.
type Publisher interface {
	Publish(ctx context.Context, event StageEvent) error
	Close() error
}

// BlobStore archives raw crawled pages for audit.
type BlobStore interface {
	Save(ctx context.Context, objectName string, data []byte) error
}
