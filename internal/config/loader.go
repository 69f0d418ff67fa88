package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Load reads .env files and the environment, applies environment-specific
// defaults and validates the result. Call once at startup and inject the
// returned Config where needed.
func Load() (*Config, error) {
	cfg, err := LoadForOverlay()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadForOverlay reads .env files and the environment and applies defaults
// but defers validation, so callers can overlay a profile and command flags
// before the completed configuration is validated.
func LoadForOverlay() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := parse()

	applyDefaults(cfg)

	return cfg, nil
}

// MustLoad loads configuration and panics on error. For application startup
// where a broken config is fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() error {
	if IsLambda() {
		return nil
	}

	// Load base .env file (optional)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// Load environment-specific file (optional)
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	// Load .env.local for local overrides (highest precedence, optional)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}
