package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadtrail/leadtrail/internal/lead"
)

func seedCampaign(t *testing.T, s *Store, numbers ...string) []lead.CompanyNumber {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateCampaign(ctx, lead.Campaign{ID: "camp-1", Name: "test"}))
	added, err := s.AddCompanyNumbers(ctx, "camp-1", numbers)
	require.NoError(t, err)
	require.Equal(t, len(numbers), added)

	companies, err := s.UnprocessedForRegistry(ctx, len(numbers))
	require.NoError(t, err)
	require.Len(t, companies, len(numbers))
	return companies
}

func TestAddCompanyNumbersSkipsDuplicates(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateCampaign(ctx, lead.Campaign{ID: "camp-1"}))

	added, err := s.AddCompanyNumbers(ctx, "camp-1", []string{"00000123", "00000123", "00000456"})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	added, err = s.AddCompanyNumbers(ctx, "camp-1", []string{"00000456"})
	require.NoError(t, err)
	require.Zero(t, added)
}

func TestPipelineGatingAcrossStages(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	companies := seedCampaign(t, s, "00000123", "00000456")
	first := companies[0]

	// Registry success unlocks VAT for that company only.
	require.NoError(t, s.SaveRegistryRecord(ctx, lead.RegistryRecord{
		ID: "rr-1", CompanyID: first.ID, Status: lead.RegistrySuccess,
		Profile: lead.RegistryProfile{CompanyName: "ACME LIMITED"},
	}))
	vatCandidates, err := s.UnprocessedForVAT(ctx, 10)
	require.NoError(t, err)
	require.Len(t, vatCandidates, 1)
	require.Equal(t, "ACME LIMITED", vatCandidates[0].CompanyName)

	// A VAT attempt, successful or not, unlocks hunting.
	require.NoError(t, s.SaveVATRecord(ctx, lead.VATRecord{
		ID: "vr-1", CompanyID: first.ID, VATNumber: "GB123456789", Status: lead.VATSuccess,
	}))
	huntCandidates, err := s.UnprocessedForHunt(ctx, 10)
	require.NoError(t, err)
	require.Len(t, huntCandidates, 1)
	require.Equal(t, "GB123456789", huntCandidates[0].VATNumber)

	// Contacts and Hunter wait for the human domain approval.
	require.NoError(t, s.SaveHuntRecord(ctx, lead.HuntRecord{
		ID: "hunt-1", CompanyID: first.ID, Status: lead.HuntSuccess,
		CandidateDomains: []string{"acme.co.uk", "other.com"},
	}))
	approved, err := s.UnprocessedForContacts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, approved)

	require.NoError(t, s.ApproveDomain(ctx, "hunt-1", "acme.co.uk", "ops", time.Unix(0, 0)))
	approved, err = s.UnprocessedForContacts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, "acme.co.uk", approved[0].ApprovedDomain)

	// Snov waits for the employee review.
	snovCandidates, err := s.UnprocessedForSnov(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, snovCandidates)

	require.NoError(t, s.SaveEmployeeReview(ctx, lead.EmployeeReview{
		ID: "er-1", CompanyID: first.ID,
		ApprovedURLs: []string{"https://linkedin.com/in/jane"},
	}))
	snovCandidates, err = s.UnprocessedForSnov(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snovCandidates, 1)
	require.Equal(t, []string{"https://linkedin.com/in/jane"}, snovCandidates[0].ApprovedURLs)
}

func TestApproveDomainRejectsNonCandidate(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	companies := seedCampaign(t, s, "00000123")
	require.NoError(t, s.SaveHuntRecord(ctx, lead.HuntRecord{
		ID: "hunt-1", CompanyID: companies[0].ID,
		CandidateDomains: []string{"acme.co.uk"},
	}))

	err := s.ApproveDomain(ctx, "hunt-1", "evil.com", "ops", time.Unix(0, 0))
	require.ErrorIs(t, err, lead.ErrNotCandidate)

	err = s.ApproveDomain(ctx, "missing", "acme.co.uk", "ops", time.Unix(0, 0))
	require.ErrorIs(t, err, lead.ErrNotFound)
}

func TestDuplicateAuditRowsAreRejected(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	companies := seedCampaign(t, s, "00000123")

	rec := lead.RegistryRecord{ID: "rr-1", CompanyID: companies[0].ID, Status: lead.RegistryAPIError}
	require.NoError(t, s.SaveRegistryRecord(ctx, rec))
	require.ErrorIs(t, s.SaveRegistryRecord(ctx, rec), lead.ErrDuplicate)

	// A written row, even an error row, removes the company from the batch.
	unprocessed, err := s.UnprocessedForRegistry(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, unprocessed)
}

func TestProgressCountsPerStage(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	companies := seedCampaign(t, s, "00000123", "00000456", "00000789")

	require.NoError(t, s.SaveRegistryRecord(ctx, lead.RegistryRecord{ID: "rr-1", CompanyID: companies[0].ID, Status: lead.RegistrySuccess}))
	require.NoError(t, s.SaveRegistryRecord(ctx, lead.RegistryRecord{ID: "rr-2", CompanyID: companies[1].ID, Status: lead.RegistryCompanyNotFound}))
	require.NoError(t, s.SaveVATRecord(ctx, lead.VATRecord{ID: "vr-1", CompanyID: companies[0].ID, Status: lead.VATNotFound}))

	progress, err := s.Progress(ctx, "camp-1")
	require.NoError(t, err)
	require.Equal(t, 3, progress.Companies)
	require.Equal(t, lead.StageRegistry, progress.Stages[0].Stage)
	require.Equal(t, 2, progress.Stages[0].Done)
	require.Equal(t, lead.StageVAT, progress.Stages[1].Stage)
	require.Equal(t, 1, progress.Stages[1].Done)
}

func TestQuotaRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	quota, err := s.GetSERPQuota(ctx)
	require.NoError(t, err)
	require.Zero(t, quota.AvailableCredits)

	want := lead.SERPQuota{AvailableCredits: 88, LastUpdated: time.Unix(1700000000, 0)}
	require.NoError(t, s.SetSERPQuota(ctx, want))
	quota, err = s.GetSERPQuota(ctx)
	require.NoError(t, err)
	require.Equal(t, want, quota)
}
