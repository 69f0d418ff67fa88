package config

import (
	"path/filepath"
)

// applyDefaults applies environment-specific defaults
func applyDefaults(cfg *Config) {
	if cfg.IsLocal() || cfg.IsTest() {
		if cfg.Adapters.Runtime == "" {
			cfg.Adapters.Runtime = "cli"
		}
		if cfg.Adapters.Storage == "" {
			cfg.Adapters.Storage = "filesystem"
		}
		if cfg.Adapters.Logger == "" {
			cfg.Adapters.Logger = "stdout"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "stdout"
		}
	} else if cfg.IsProduction() {
		if cfg.Adapters.Runtime == "" {
			if IsLambda() {
				cfg.Adapters.Runtime = "lambda"
			} else {
				cfg.Adapters.Runtime = "cli"
			}
		}
		if cfg.Adapters.Storage == "" {
			cfg.Adapters.Storage = "s3"
		}
		if cfg.Adapters.Logger == "" {
			cfg.Adapters.Logger = "zerolog"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "cloudwatch"
		}
		// Lambda invocations retry less aggressively than operator runs
		if cfg.Retry.MaxAttempts < 3 {
			cfg.Retry.MaxAttempts = 3
		}
	}

	// The filesystem adapter stores its "bucket" trees next to the data root
	// unless pointed elsewhere
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = filepath.Join(cfg.Ingest.DataRoot, "store")
	}

	// Reports live under the data root so containment checks share one base
	if cfg.Ingest.ReportsRoot == "" {
		cfg.Ingest.ReportsRoot = filepath.Join(cfg.Ingest.DataRoot, "reports")
	}
}
