package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"trailingest/internal/application/usecase"
	"trailingest/internal/config"
	"trailingest/internal/domain/archive"
	infraobs "trailingest/internal/infrastructure/observability"
)

var (
	verifyStart string
	verifyEnd   string
	verifyList  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check local data availability for a date window",
	Long: `Verify which dates of a window have processed data ready for downstream
consumers. A date is "processed" when decompressed record containers exist
for it, "raw_only" when only compressed downloads exist, and "missing"
otherwise.

The command exits non-zero unless every date in the window is processed,
so it can gate downstream jobs.

Examples:
  trailingest verify --start 2024-01-01 --end 2024-01-07
  trailingest verify --dates    # list every date with processed data`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyStart, "start", "", "first day of the window (YYYY-MM-DD)")
	verifyCmd.Flags().StringVar(&verifyEnd, "end", "", "last day, inclusive (defaults to --start)")
	verifyCmd.Flags().BoolVar(&verifyList, "dates", false, "list all dates with processed data and exit")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	availability, err := buildAvailability(cmd, cfg)
	if err != nil {
		return err
	}

	if verifyList {
		dates, err := availability.PresentDates(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	}

	start := verifyStart
	if start == "" {
		start = cfg.Ingest.StartDate
	}
	end := verifyEnd
	if end == "" {
		end = cfg.Ingest.EndDate
	}

	dr, err := archive.NewDateRange(start, end)
	if err != nil {
		return err
	}

	report, err := availability.Check(cmd.Context(), dr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, d := range report.Dates {
		fmt.Fprintf(out, "%s  %-10s  %d files\n", d.Date, d.Status, d.Files)
	}
	fmt.Fprintf(out, "\nprocessed %d, raw-only %d, missing %d of %d dates\n",
		report.Available, report.RawOnly, report.Missing, len(report.Dates))

	if !report.AllAvailable {
		return fmt.Errorf("window %s is not fully available", dr.String())
	}
	return nil
}

// buildAvailability wires just the availability checker; no object store or
// pipeline services are needed to inspect the local trees.
func buildAvailability(cmd *cobra.Command, cfg *config.Config) (*usecase.AvailabilityUseCase, error) {
	obs, err := infraobs.CreateObservability(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	return usecase.NewAvailabilityUseCase(
		filepath.Join(cfg.Ingest.DataRoot, "raw"),
		filepath.Join(cfg.Ingest.DataRoot, "processed"),
		cfg.Ingest.Prefix,
		obs,
	)
}
