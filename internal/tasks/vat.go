package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/vat"
)

const (
	vatTaskName  = "vat_lookup"
	vatBatchSize = 5
)

// VATLookup searches the VAT register by company name.
type VATLookup interface {
	Lookup(ctx context.Context, companyName string) vat.Result
}

// VATTask finds VAT numbers for companies whose registry lookup
// succeeded.
type VATTask struct {
	deps   Deps
	client VATLookup
	sched  Schedule
}

// NewVATTask creates the VAT lookup task.
func NewVATTask(deps Deps, client VATLookup, sched Schedule) *VATTask {
	return &VATTask{deps: deps, client: client, sched: sched}
}

func (t *VATTask) Name() string            { return vatTaskName }
func (t *VATTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *VATTask) LockTTL() time.Duration  { return t.sched.ttl(vatLockTTL) }

// Run drains one batch of VAT candidates.
func (t *VATTask) Run(ctx context.Context) error {
	candidates, err := t.deps.Store.UnprocessedForVAT(ctx, t.sched.batch(vatBatchSize))
	if err != nil {
		return fmt.Errorf("list vat candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	t.deps.Logger.Info("vat lookup batch starting", zap.Int("companies", len(candidates)))

	for _, candidate := range candidates {
		result := t.client.Lookup(ctx, candidate.CompanyName)

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec := lead.VATRecord{
			ID:          id,
			CompanyID:   candidate.CompanyID,
			VATNumber:   result.VATNumber,
			MatchedName: result.MatchedName,
			SearchTerms: result.SearchTerms,
			Status:      result.Status,
			Notes:       result.Notes,
			ProxyUsed:   result.ProxyUsed,
			CreatedAt:   t.deps.Clock.Now(),
		}
		if err := t.deps.Store.SaveVATRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(vatTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save vat record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, vatTaskName, candidate.CompanyID, lead.StageVAT, string(result.Status))
	}
	return nil
}
