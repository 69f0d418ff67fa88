package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	infradatabase "trailingest/internal/infrastructure/database"
	infraobs "trailingest/internal/infrastructure/observability"
	"trailingest/internal/infrastructure/repository"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show ingestion run history",
	Long: `List the most recent ingestion runs recorded in the history database,
or show one run in full when a run ID is given.

Requires a configured database adapter (ADAPTER_DATABASE=postgres).

Examples:
  trailingest runs
  trailingest runs --limit 5
  trailingest runs 3d6a1f0e-5c2b-4a19-9e47-8f0d2c1b6a53`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo, closeDB, err := buildRunHistory(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}
	return showRuns(cmd.Context(), repo, cmd.OutOrStdout(), runID, runsLimit)
}

// showRuns renders either the recent-run listing or one run in detail.
func showRuns(ctx context.Context, repo ports.RunRepository, out io.Writer, runID string, limit int) error {
	if runID != "" {
		record, err := repo.Get(ctx, runID)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "run_id:       %s\n", record.RunID)
		fmt.Fprintf(out, "window:       %s\n", record.Window())
		fmt.Fprintf(out, "status:       %s\n", record.Status)
		fmt.Fprintf(out, "listed:       %d\n", record.TotalListed)
		fmt.Fprintf(out, "downloaded:   %d\n", record.Downloaded)
		fmt.Fprintf(out, "decompressed: %d\n", record.Decompressed)
		fmt.Fprintf(out, "validated:    %d\n", record.Validated)
		fmt.Fprintf(out, "success_rate: %.1f%%\n", record.SuccessRate)
		fmt.Fprintf(out, "issues:       %d\n", record.IssuesFound)
		fmt.Fprintf(out, "report:       %s\n", record.ReportPath)
		fmt.Fprintf(out, "started_at:   %s\n", record.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintf(out, "duration:     %dms\n", record.DurationMS)
		return nil
	}

	records, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-21s  %-15s  %11s  %6s\n",
		"RUN ID", "WINDOW", "STATUS", "VALIDATED", "RATE")
	for _, r := range records {
		fmt.Fprintf(out, "%-36s  %-21s  %-15s  %5d/%5d  %5.1f%%\n",
			r.RunID, r.Window(), r.Status, r.Validated, r.TotalListed, r.SuccessRate)
	}
	return nil
}

// buildRunHistory wires just the history repository; no object store or
// pipeline services are needed to read past runs.
func buildRunHistory(cmd *cobra.Command, cfg *config.Config) (ports.RunRepository, func() error, error) {
	if cfg.Adapters.Database == "" {
		return nil, nil, fmt.Errorf("run history requires a database adapter (set ADAPTER_DATABASE=postgres)")
	}

	obs, err := infraobs.CreateObservability(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}

	logger, mx, err := obs.ComponentsScoped("database")
	if err != nil {
		return nil, nil, err
	}

	db, err := infradatabase.NewFactory(logger, mx).Create(cfg)
	if err != nil {
		return nil, nil, err
	}

	return repository.NewRunRepository(db, logger, mx), db.Close, nil
}
