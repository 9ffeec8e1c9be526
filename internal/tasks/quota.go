package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/serp"
)

const (
	quotaTaskName = "serp_quota_check"

	// quotaInterval is deliberately long; hunting and LinkedIn runs
	// refresh the balance after every search anyway.
	quotaInterval = 15 * time.Minute
)

// QuotaChecker reports the remaining search credits.
type QuotaChecker interface {
	CheckQuota(ctx context.Context) (serp.Status, error)
}

// QuotaTask periodically refreshes the stored search quota so the API
// and dashboards stay current even when no hunting runs.
type QuotaTask struct {
	deps    Deps
	checker QuotaChecker
}

// NewQuotaTask creates the quota refresh task.
func NewQuotaTask(deps Deps, checker QuotaChecker) *QuotaTask {
	return &QuotaTask{deps: deps, checker: checker}
}

func (t *QuotaTask) Name() string            { return quotaTaskName }
func (t *QuotaTask) Interval() time.Duration { return quotaInterval }
func (t *QuotaTask) LockTTL() time.Duration  { return defaultLockTTL }

// Run fetches and persists the current balance.
func (t *QuotaTask) Run(ctx context.Context) error {
	status, err := t.checker.CheckQuota(ctx)
	if err != nil {
		return fmt.Errorf("check search quota: %w", err)
	}
	credits := float64(status.RemainingRequests)
	metrics.SetSERPCredits(credits)
	q := lead.SERPQuota{AvailableCredits: credits, LastUpdated: t.deps.Clock.Now()}
	if err := t.deps.Store.SetSERPQuota(ctx, q); err != nil {
		return fmt.Errorf("persist search quota: %w", err)
	}
	t.deps.Logger.Debug("search quota refreshed", zap.Float64("credits", credits))
	return nil
}
