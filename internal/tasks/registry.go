package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/registry"
)

const (
	registryTaskName  = "registry_lookup"
	registryBatchSize = 100

	// registryPause spaces lookups inside a batch so the registry's
	// rate window is never exhausted by a single run.
	registryPause = 2 * time.Second
)

// RegistryLookup resolves one company number against the registry.
type RegistryLookup interface {
	Lookup(ctx context.Context, number string) registry.Result
}

// RegistryTask enriches unprocessed company numbers with their
// Companies House profile.
type RegistryTask struct {
	deps     Deps
	client   RegistryLookup
	sched    Schedule
	pauseFor time.Duration
	pause    func(ctx context.Context, d time.Duration) error
}

// NewRegistryTask creates the registry lookup task. A zero pause keeps
// the default spacing.
func NewRegistryTask(deps Deps, client RegistryLookup, sched Schedule, pause time.Duration) *RegistryTask {
	if pause <= 0 {
		pause = registryPause
	}
	return &RegistryTask{deps: deps, client: client, sched: sched, pauseFor: pause, pause: sleepCtx}
}

func (t *RegistryTask) Name() string            { return registryTaskName }
func (t *RegistryTask) Interval() time.Duration { return t.sched.interval(defaultInterval) }
func (t *RegistryTask) LockTTL() time.Duration  { return t.sched.ttl(defaultLockTTL) }

// Run drains one batch. Every looked-up company gets a record row, the
// failures included.
func (t *RegistryTask) Run(ctx context.Context) error {
	companies, err := t.deps.Store.UnprocessedForRegistry(ctx, t.sched.batch(registryBatchSize))
	if err != nil {
		return fmt.Errorf("list unprocessed companies: %w", err)
	}
	if len(companies) == 0 {
		return nil
	}
	t.deps.Logger.Info("registry lookup batch starting", zap.Int("companies", len(companies)))

	for i, company := range companies {
		if i > 0 {
			if err := t.pause(ctx, t.pauseFor); err != nil {
				return err
			}
		}

		result := t.client.Lookup(ctx, company.Number)

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec := lead.RegistryRecord{
			ID:           id,
			CompanyID:    company.ID,
			Status:       result.Status,
			Profile:      result.Profile,
			ErrorMessage: result.Message,
			CreatedAt:    t.deps.Clock.Now(),
		}
		if err := t.deps.Store.SaveRegistryRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(registryTaskName, company.ID, err); err != nil {
				return fmt.Errorf("save registry record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, registryTaskName, company.ID, lead.StageRegistry, string(result.Status))
	}
	return nil
}
