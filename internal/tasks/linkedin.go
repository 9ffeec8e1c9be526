package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/linkedin"
	"github.com/leadtrail/leadtrail/internal/metrics"
)

const (
	linkedInTaskName  = "linkedin_discovery"
	linkedInBatchSize = 10
)

// LinkedInDiscoverer searches for a company's LinkedIn presence.
type LinkedInDiscoverer interface {
	Discover(ctx context.Context, companyName, approvedDomain string) linkedin.Result
}

// LinkedInTask finds company pages and employee profiles on LinkedIn.
// It runs for every company with a successful registry lookup; an
// approved domain sharpens the query but is not required.
type LinkedInTask struct {
	deps   Deps
	finder LinkedInDiscoverer
	sched  Schedule
}

// NewLinkedInTask creates the LinkedIn discovery task.
func NewLinkedInTask(deps Deps, finder LinkedInDiscoverer, sched Schedule) *LinkedInTask {
	return &LinkedInTask{deps: deps, finder: finder, sched: sched}
}

func (t *LinkedInTask) Name() string            { return linkedInTaskName }
func (t *LinkedInTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *LinkedInTask) LockTTL() time.Duration  { return t.sched.ttl(defaultLockTTL) }

// Run drains one batch of discovery candidates.
func (t *LinkedInTask) Run(ctx context.Context) error {
	candidates, err := t.deps.Store.UnprocessedForLinkedIn(ctx, t.sched.batch(linkedInBatchSize))
	if err != nil {
		return fmt.Errorf("list linkedin candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	t.deps.Logger.Info("linkedin discovery batch starting", zap.Int("companies", len(candidates)))

	for _, candidate := range candidates {
		result := t.finder.Discover(ctx, candidate.CompanyName, candidate.ApprovedDomain)
		if result.CreditsRemaining != nil {
			t.storeCredits(ctx, *result.CreditsRemaining)
		}

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec := lead.LinkedInRecord{
			ID:               id,
			CompanyID:        candidate.CompanyID,
			CompanyPages:     result.CompanyPages,
			EmployeeProfiles: result.EmployeeProfiles,
			Status:           result.Status,
			ErrorMessage:     result.ErrorMessage,
			CreatedAt:        t.deps.Clock.Now(),
		}
		if err := t.deps.Store.SaveLinkedInRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(linkedInTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save linkedin record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, linkedInTaskName, candidate.CompanyID, lead.StageLinkedIn, string(result.Status))
	}
	return nil
}

func (t *LinkedInTask) storeCredits(ctx context.Context, credits float64) {
	metrics.SetSERPCredits(credits)
	q := lead.SERPQuota{AvailableCredits: credits, LastUpdated: t.deps.Clock.Now()}
	if err := t.deps.Store.SetSERPQuota(ctx, q); err != nil {
		t.deps.Logger.Warn("failed to persist search quota", zap.Error(err))
	}
}
