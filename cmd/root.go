package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/api"
	"github.com/leadtrail/leadtrail/internal/app"
	appconfig "github.com/leadtrail/leadtrail/internal/config"
	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/logging"
	"github.com/leadtrail/leadtrail/internal/tasks"
	"github.com/leadtrail/leadtrail/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows
// us to inject a mock app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() appconfig.Config
	Store() lead.Store
	Locker() lead.Locker
	Tasks() ([]tasks.Task, error)
	APIServer() *api.Server
	Quotas(ctx context.Context) (app.QuotaSnapshot, error)
}

// newApp is the application factory. It's a variable so tests can
// replace it with a mock factory.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadtrail",
		Short: "Company enrichment pipeline for UK lead generation.",
		Long: `leadtrail enriches UK companies from their registered company number:
registry and VAT lookups, website hunting with human domain approval,
contact extraction, LinkedIn discovery and email finding.`,

		// Runs after config is loaded but before the subcommand's RunE,
		// so this is where the application is built and injected.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(config.InitConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newQuotaCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
