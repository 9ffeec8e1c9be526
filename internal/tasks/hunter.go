package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/hunterio"
	"github.com/leadtrail/leadtrail/internal/lead"
)

const (
	hunterTaskName  = "hunter_domain_search"
	hunterBatchSize = 2
)

// HunterAPI exposes the Hunter.io operations the task needs.
type HunterAPI interface {
	CheckQuota(ctx context.Context) (hunterio.Quota, error)
	DomainSearch(ctx context.Context, domain string) ([]lead.HunterEmail, error)
}

// HunterTask searches Hunter.io for emails on approved domains.
type HunterTask struct {
	deps   Deps
	client HunterAPI
	sched  Schedule
}

// NewHunterTask creates the Hunter.io domain search task.
func NewHunterTask(deps Deps, client HunterAPI, sched Schedule) *HunterTask {
	return &HunterTask{deps: deps, client: client, sched: sched}
}

func (t *HunterTask) Name() string            { return hunterTaskName }
func (t *HunterTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *HunterTask) LockTTL() time.Duration  { return t.sched.ttl(defaultLockTTL) }

// Run checks the account quota and drains one batch. Too few credits
// aborts the run before any company is consumed.
func (t *HunterTask) Run(ctx context.Context) error {
	quota, err := t.client.CheckQuota(ctx)
	if err != nil {
		return fmt.Errorf("check hunter quota: %w", err)
	}
	batch := t.sched.batch(hunterBatchSize)
	if quota.AvailableCredits < float64(batch) {
		t.deps.Logger.Warn("hunter credits below batch size, skipping run",
			zap.Float64("available_credits", quota.AvailableCredits),
			zap.Int("batch", batch),
		)
		return nil
	}

	candidates, err := t.deps.Store.UnprocessedForHunter(ctx, batch)
	if err != nil {
		return fmt.Errorf("list hunter candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	t.deps.Logger.Info("hunter domain search batch starting", zap.Int("companies", len(candidates)))

	for _, candidate := range candidates {
		rec := lead.HunterRecord{Domain: candidate.ApprovedDomain}
		emails, err := t.client.DomainSearch(ctx, candidate.ApprovedDomain)
		switch {
		case err != nil:
			rec.Status = lead.HunterAPIError
			rec.ErrorMessage = err.Error()
		case len(emails) == 0:
			rec.Status = lead.HunterNoEmailsFound
		default:
			rec.Status = lead.HunterSuccess
			rec.Emails = emails
		}

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec.ID = id
		rec.CompanyID = candidate.CompanyID
		rec.CreatedAt = t.deps.Clock.Now()

		if err := t.deps.Store.SaveHunterRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(hunterTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save hunter record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, hunterTaskName, candidate.CompanyID, lead.StageHunter, string(rec.Status))
	}
	return nil
}
