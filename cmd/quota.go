package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newQuotaCmd creates the 'quota' subcommand: prints the stored search
// balance and the live provider balances.
func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Prints the provider quota balances",
		Long: `Prints the stored ZenSERP search balance and, when credentials are
configured, the live Hunter.io and Snov.io balances.`,
		RunE: runQuotaCommand,
	}
}

func runQuotaCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	snap, err := appInstance.Quotas(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if snap.SERP.LastUpdated.IsZero() {
		fmt.Fprintln(out, "serp:   no stored balance yet")
	} else {
		fmt.Fprintf(out, "serp:   %.0f credits (as of %s)\n",
			snap.SERP.AvailableCredits, snap.SERP.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	}
	if snap.Hunter != nil {
		fmt.Fprintf(out, "hunter: %.0f of %.0f credits (%s plan)\n",
			snap.Hunter.AvailableCredits, snap.Hunter.TotalAvailable, snap.Hunter.PlanName)
	} else {
		fmt.Fprintln(out, "hunter: not configured")
	}
	if snap.Snov != nil {
		fmt.Fprintf(out, "snov:   %.0f credits\n", *snap.Snov)
	} else {
		fmt.Fprintln(out, "snov:   not configured")
	}
	return nil
}
