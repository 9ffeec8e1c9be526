// Package cmd defines and implements the CLI commands for the leadtrail executable.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/scheduler"
)

// newRunCmd creates the 'run' subcommand: the full pipeline scheduler
// without the HTTP API.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the enrichment pipeline scheduler",
		Long: `Starts every pipeline task on its interval: registry lookup, VAT
lookup, website hunting, contact extraction, LinkedIn discovery and
email finding. Blocks until interrupted.`,
		RunE: runPipelineCommand,
	}
}

func runPipelineCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	taskList, err := appInstance.Tasks()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := appInstance.Logger()
	logger.Info("starting pipeline scheduler", zap.Int("tasks", len(taskList)))

	sched := scheduler.New(appInstance.Locker(), logger, taskList...)
	sched.Run(ctx)

	logger.Info("pipeline scheduler stopped")
	return nil
}
