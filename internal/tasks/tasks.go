// Package tasks implements the pipeline stage tasks the scheduler
// runs. Each task drains a batch of unprocessed companies, calls its
// provider, and writes exactly one audit row per company. Companies
// are never retried: the row gates them out of later batches whatever
// its status.
package tasks

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
)

// Scheduling defaults shared across tasks.
const (
	defaultInterval  = 10 * time.Second
	contactsInterval = 5 * time.Second

	defaultLockTTL  = 300 * time.Second
	vatLockTTL      = 120 * time.Second
	huntLockTTL     = 600 * time.Second
	contactsLockTTL = 600 * time.Second
)

// Task is one schedulable pipeline stage.
type Task interface {
	Name() string
	Interval() time.Duration
	LockTTL() time.Duration
	Run(ctx context.Context) error
}

// Schedule overrides a task's batch size, cadence and lock lease.
// Zero values fall back to the task's defaults.
type Schedule struct {
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func (s Schedule) batch(def int) int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return def
}

func (s Schedule) interval(def time.Duration) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return def
}

func (s Schedule) ttl(def time.Duration) time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return def
}

// Deps bundles the shared collaborators every stage task needs.
type Deps struct {
	Store     lead.Store
	IDs       lead.IDGenerator
	Clock     lead.Clock
	Publisher lead.Publisher
	Logger    *zap.Logger
}

// recorded reports one saved audit row: a metrics sample plus a stage
// event for downstream consumers. Publish failures are logged, never
// propagated; the row is already committed.
func (d Deps) recorded(ctx context.Context, task, companyID string, stage lead.Stage, status string) {
	metrics.ObserveCompany(task, status)
	if d.Publisher == nil {
		return
	}
	event := lead.StageEvent{CompanyID: companyID, Stage: stage, Status: status}
	if err := d.Publisher.Publish(ctx, event); err != nil {
		d.Logger.Warn("stage event publish failed",
			zap.String("task", task),
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	}
}

// saveErr decides what to do with a failed save. A duplicate row means
// another run already processed the company; that is a skip, not a
// failure.
func (d Deps) saveErr(task, companyID string, err error) error {
	if errors.Is(err, lead.ErrDuplicate) {
		d.Logger.Warn("audit row already exists, skipping company",
			zap.String("task", task),
			zap.String("company_id", companyID),
		)
		return nil
	}
	return err
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
