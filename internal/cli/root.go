// Package cli implements the trailingest command tree. Commands load the
// environment configuration, overlay the selected profile and their own
// flags, and hand the result to the application assembler.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trailingest/internal/config"
)

var (
	// Global flags
	cfgFile     string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "trailingest",
	Short: "Audit-log archive ingestion and integrity pipeline",
	Long: `trailingest pulls compressed audit-log archives for a date window from an
object store, decompresses and validates them, and reconciles file counts
across every stage into an integrity report.

Examples:
  trailingest run --start 2024-01-01 --end 2024-01-07
  trailingest run --profile prod-trail --start 2024-01-01
  trailingest verify --start 2024-01-01 --end 2024-01-07
  trailingest serve --runtime http

Configuration comes from the environment (.env files are honored); a
profiles file (~/.trailingest/profiles.yaml) supplies named bucket/prefix
presets selected with --profile.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "profiles file (default ~/.trailingest/profiles.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "named ingestion profile to apply")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
}

func initViper() {
	viper.SetEnvPrefix("TRAILINGEST")
	viper.AutomaticEnv()
}

// loadConfig loads the environment configuration and overlays the selected
// profile. Flag values are applied afterwards by each command, so the
// precedence is flags over profile over environment. Validation happens
// when the application is built, after every overlay has been applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadForOverlay()
	if err != nil {
		return nil, err
	}

	path := viper.GetString("config")
	name := viper.GetString("profile")

	pf, err := config.LoadProfiles(path)
	if err != nil {
		return nil, err
	}

	if name != "" || pf.Default != "" {
		p, err := pf.Lookup(name)
		if err != nil {
			return nil, err
		}
		cfg.Apply(p)
	}

	return cfg, nil
}
