// Package scheduler drives the pipeline tasks on their intervals,
// guarded by singleton locks so overlapping triggers are dropped.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/tasks"
)

// Scheduler runs each registered task once at startup, then on its
// interval until the context is cancelled.
type Scheduler struct {
	locker lead.Locker
	logger *zap.Logger
	tasks  []tasks.Task
}

// New creates a scheduler over the given tasks.
func New(locker lead.Locker, logger *zap.Logger, taskList ...tasks.Task) *Scheduler {
	return &Scheduler{locker: locker, logger: logger, tasks: taskList}
}

// Run blocks until ctx is cancelled and every task loop has stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(task tasks.Task) {
			defer wg.Done()
			s.loop(ctx, task)
		}(task)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task tasks.Task) {
	// Fire once immediately so a fresh deploy starts draining work
	// without waiting a full interval.
	s.trigger(ctx, task)

	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, task)
		}
	}
}

// trigger runs the task if its lock is free. A held lock is a silent
// skip; another node or an earlier tick owns the run.
func (s *Scheduler) trigger(ctx context.Context, task tasks.Task) {
	acquired, err := s.locker.TryAcquire(ctx, task.Name(), task.LockTTL())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("task lock acquisition failed",
				zap.String("task", task.Name()),
				zap.Error(err),
			)
		}
		return
	}
	if !acquired {
		metrics.ObserveLockSkip(task.Name())
		s.logger.Debug("task lock held, skipping trigger", zap.String("task", task.Name()))
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, task.Name()); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("task lock release failed",
				zap.String("task", task.Name()),
				zap.Error(err),
			)
		}
	}()

	start := time.Now()
	runErr := task.Run(ctx)
	outcome := "success"
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		outcome = "error"
		s.logger.Error("task run failed",
			zap.String("task", task.Name()),
			zap.Error(runErr),
		)
	}
	metrics.ObserveTaskRun(task.Name(), outcome, time.Since(start))
}
