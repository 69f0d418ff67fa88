package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trailingest/internal/app"
)

var serveRuntime string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a long-running runtime that accepts run requests",
	Long: `Serve the pipeline behind a long-running runtime instead of executing a
single run. The http runtime exposes POST /runs to trigger a window,
GET /healthz, and GET /metrics for Prometheus scraping.

Examples:
  trailingest serve                  # runtime from ADAPTER_RUNTIME
  trailingest serve --runtime http`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveRuntime, "runtime", "", "runtime adapter to serve under (http or lambda)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveRuntime != "" {
		cfg.Adapters.Runtime = serveRuntime
	}
	if cfg.Adapters.Runtime == "cli" {
		return fmt.Errorf("serve needs a long-running runtime; use %q for a one-shot run", "trailingest run")
	}

	application, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Start()
}
