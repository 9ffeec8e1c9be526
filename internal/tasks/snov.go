package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
)

const (
	snovTaskName  = "snov_email_extraction"
	snovBatchSize = 2
)

// SnovAPI exposes the Snov.io operations the task needs.
type SnovAPI interface {
	CheckBalance(ctx context.Context) (float64, error)
	ProcessProfile(ctx context.Context, profileURL string) lead.SnovProfile
}

// SnovTask extracts emails from the employee profiles a human approved.
type SnovTask struct {
	deps   Deps
	client SnovAPI
	sched  Schedule
}

// NewSnovTask creates the Snov.io extraction task.
func NewSnovTask(deps Deps, client SnovAPI, sched Schedule) *SnovTask {
	return &SnovTask{deps: deps, client: client, sched: sched}
}

func (t *SnovTask) Name() string            { return snovTaskName }
func (t *SnovTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *SnovTask) LockTTL() time.Duration  { return t.sched.ttl(defaultLockTTL) }

// Run checks the account balance and drains one batch. An empty
// balance aborts the run before any company is consumed.
func (t *SnovTask) Run(ctx context.Context) error {
	balance, err := t.client.CheckBalance(ctx)
	if err != nil {
		return fmt.Errorf("check snov balance: %w", err)
	}
	if balance <= 0 {
		t.deps.Logger.Warn("snov balance exhausted, skipping run")
		return nil
	}

	candidates, err := t.deps.Store.UnprocessedForSnov(ctx, t.sched.batch(snovBatchSize))
	if err != nil {
		return fmt.Errorf("list snov candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	t.deps.Logger.Info("snov extraction batch starting",
		zap.Int("companies", len(candidates)),
		zap.Float64("balance", balance),
	)

	for _, candidate := range candidates {
		profiles := make([]lead.SnovProfile, 0, len(candidate.ApprovedURLs))
		for _, profileURL := range candidate.ApprovedURLs {
			profiles = append(profiles, t.client.ProcessProfile(ctx, profileURL))
		}

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec := lead.SnovRecord{
			ID:        id,
			CompanyID: candidate.CompanyID,
			Profiles:  profiles,
			Status:    snovStatus(profiles),
			CreatedAt: t.deps.Clock.Now(),
		}
		if err := t.deps.Store.SaveSnovRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(snovTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save snov record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, snovTaskName, candidate.CompanyID, lead.StageSnov, string(rec.Status))
	}
	return nil
}

// snovStatus rolls the per-profile outcomes up into a record status.
func snovStatus(profiles []lead.SnovProfile) lead.SnovStatus {
	var succeeded, failed int
	for _, p := range profiles {
		switch p.Status {
		case lead.SnovProfileSuccess:
			succeeded++
		case lead.SnovProfileAPIError:
			failed++
		}
	}
	switch {
	case len(profiles) == 0:
		return lead.SnovNoEmailsFound
	case succeeded == len(profiles):
		return lead.SnovSuccess
	case succeeded > 0:
		return lead.SnovPartialSuccess
	case failed > 0:
		return lead.SnovAPIError
	default:
		return lead.SnovNoEmailsFound
	}
}
