package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/clock/system"
	uuidgen "github.com/leadtrail/leadtrail/internal/id/uuid"
	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/registry"
)

// newImportCmd creates the 'import' subcommand: loads a CSV of company
// numbers into a new campaign.
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <campaign-name> <csv-file>",
		Short: "Imports a CSV of company numbers into a new campaign",
		Long: `Creates a campaign and loads company numbers from the first column of
the CSV file. Rows that do not normalize to a valid company number are
reported and skipped; duplicates within the campaign are ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: runImportCommand,
	}
}

func runImportCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	name, path := args[0], args[1]
	logger := appInstance.Logger()

	numbers, skipped, err := readCompanyNumbers(path)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		return fmt.Errorf("no valid company numbers in %s", path)
	}

	id, err := uuidgen.New().NewID()
	if err != nil {
		return fmt.Errorf("generate campaign id: %w", err)
	}
	now := system.New().Now()
	campaign := lead.Campaign{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := appInstance.Store().CreateCampaign(cmd.Context(), campaign); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}

	added, err := appInstance.Store().AddCompanyNumbers(cmd.Context(), id, numbers)
	if err != nil {
		return fmt.Errorf("add company numbers: %w", err)
	}

	logger.Info("campaign imported",
		zap.String("campaign_id", id),
		zap.String("name", name),
		zap.Int("companies_added", added),
		zap.Int("rows_skipped", skipped),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "campaign %s created: %d companies added, %d rows skipped\n",
		id, added, skipped)
	return nil
}

// readCompanyNumbers reads the first column of a CSV file and returns
// the normalized company numbers, plus a count of skipped rows. A
// header row falls out naturally: it fails normalization.
func readCompanyNumbers(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var numbers []string
	seen := map[string]bool{}
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		number, err := registry.NormalizeCompanyNumber(record[0])
		if err != nil {
			skipped++
			continue
		}
		if seen[number] {
			continue
		}
		seen[number] = true
		numbers = append(numbers, number)
	}
	return numbers, skipped, nil
}
