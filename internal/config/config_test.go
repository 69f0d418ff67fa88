package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		expected     string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_CFG_VAR",
			envValue:     "configured",
			defaultValue: "default",
			expected:     "configured",
		},
		{
			name:         "environment variable not set",
			key:          "TEST_CFG_UNSET",
			envValue:     "",
			defaultValue: "default",
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			result := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{name: "valid integer", envValue: "8", defaultValue: 4, expected: 8},
		{name: "invalid integer falls back", envValue: "eight", defaultValue: 4, expected: 4},
		{name: "unset falls back", envValue: "", defaultValue: 4, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_CFG_INT"
			if tt.envValue != "" {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}

			assert.Equal(t, tt.expected, getInt(key, tt.defaultValue))
		})
	}
}

func TestGetBool(t *testing.T) {
	t.Run("parses true", func(t *testing.T) {
		t.Setenv("TEST_CFG_BOOL", "true")
		assert.True(t, getBool("TEST_CFG_BOOL", false))
	})

	t.Run("invalid value falls back", func(t *testing.T) {
		t.Setenv("TEST_CFG_BOOL", "yep")
		assert.False(t, getBool("TEST_CFG_BOOL", false))
	})
}

func TestGetDuration(t *testing.T) {
	t.Run("parses duration", func(t *testing.T) {
		t.Setenv("TEST_CFG_DUR", "250ms")
		assert.Equal(t, 250*time.Millisecond, getDuration("TEST_CFG_DUR", "1s"))
	})

	t.Run("invalid value uses default", func(t *testing.T) {
		t.Setenv("TEST_CFG_DUR", "soon")
		assert.Equal(t, time.Second, getDuration("TEST_CFG_DUR", "1s"))
	})
}

func TestGetFloat64(t *testing.T) {
	t.Setenv("TEST_CFG_FLOAT", "1.5")
	assert.Equal(t, 1.5, getFloat64("TEST_CFG_FLOAT", 2.0))
	assert.Equal(t, 2.0, getFloat64("TEST_CFG_FLOAT_MISSING", 2.0))
}

func TestEnvironmentDetection(t *testing.T) {
	tests := []struct {
		environment string
		isLocal     bool
		isProd      bool
	}{
		{environment: "local", isLocal: true},
		{environment: "development", isLocal: true},
		{environment: "production", isProd: true},
		{environment: "PROD", isProd: true},
		{environment: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.isLocal, cfg.IsLocal())
			assert.Equal(t, tt.isProd, cfg.IsProduction())
		})
	}
}

func validTestConfig() *Config {
	return &Config{
		ServiceName: "trailingest",
		Environment: "test",
		Adapters: AdapterConfig{
			Runtime: "cli",
			Storage: "filesystem",
			Logger:  "stdout",
			Metrics: "stdout",
		},
		Ingest: IngestConfig{
			Bucket:        "audit-archives",
			Prefix:        "AWSLogs/123456789012/CloudTrail/us-east-1",
			ArchiveSuffix: ".gz",
			DataRoot:      "data",
			ReportsRoot:   "data/reports",
			Workers:       4,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		},
		Storage: StorageConfig{LocalPath: "data/store", Timeout: time.Minute},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validTestConfig().Validate())
	})

	t.Run("missing bucket collected", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Ingest.Bucket = ""

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "INGEST_BUCKET")
	})

	t.Run("multiple problems joined", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Ingest.Bucket = ""
		cfg.Retry.MaxAttempts = 0

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "INGEST_BUCKET")
		assert.Contains(t, err.Error(), "RETRY_MAX_ATTEMPTS")
	})

	t.Run("unknown runtime adapter rejected", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Adapters.Runtime = "serverless"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid runtime adapter")
	})

	t.Run("backoff ordering enforced", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Retry.MaxBackoff = 10 * time.Millisecond

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "RETRY_MAX_BACKOFF")
	})

	t.Run("sqs queue requires url", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Adapters.Queue = "sqs"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "SQS_QUEUE_URL")
	})

	t.Run("postgres adapter validates connection settings", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Adapters.Database = "postgres"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_HOST")
	})
}

func TestApplyDefaults(t *testing.T) {
	t.Run("local environment gets filesystem stack", func(t *testing.T) {
		cfg := &Config{Environment: "local", Ingest: IngestConfig{DataRoot: "data"}}

		applyDefaults(cfg)

		assert.Equal(t, "cli", cfg.Adapters.Runtime)
		assert.Equal(t, "filesystem", cfg.Adapters.Storage)
		assert.Equal(t, "stdout", cfg.Adapters.Logger)
		assert.Equal(t, filepath.Join("data", "reports"), cfg.Ingest.ReportsRoot)
		assert.Equal(t, filepath.Join("data", "store"), cfg.Storage.LocalPath)
	})

	t.Run("production gets s3 stack", func(t *testing.T) {
		cfg := &Config{Environment: "production", Ingest: IngestConfig{DataRoot: "/var/lib/trailingest"}}

		applyDefaults(cfg)

		assert.Equal(t, "s3", cfg.Adapters.Storage)
		assert.Equal(t, "zerolog", cfg.Adapters.Logger)
		assert.Equal(t, "cloudwatch", cfg.Adapters.Metrics)
		assert.GreaterOrEqual(t, cfg.Retry.MaxAttempts, 3)
	})

	t.Run("explicit adapters survive", func(t *testing.T) {
		cfg := &Config{
			Environment: "local",
			Adapters:    AdapterConfig{Storage: "s3"},
			Ingest:      IngestConfig{DataRoot: "data"},
		}

		applyDefaults(cfg)

		assert.Equal(t, "s3", cfg.Adapters.Storage)
	})
}

func TestProfiles(t *testing.T) {
	t.Run("missing file yields empty document", func(t *testing.T) {
		pf, err := LoadProfiles(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Empty(t, pf.Profiles)
	})

	t.Run("round trip and lookup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		saved := &ProfilesFile{
			Default: "prod-trail",
			Profiles: map[string]Profile{
				"prod-trail": {
					Bucket: "org-cloudtrail",
					Prefix: "AWSLogs/123456789012/CloudTrail/us-east-1",
					Region: "us-east-1",
				},
			},
		}
		require.NoError(t, SaveProfiles(path, saved))

		pf, err := LoadProfiles(path)
		require.NoError(t, err)

		p, err := pf.Lookup("")
		require.NoError(t, err)
		assert.Equal(t, "org-cloudtrail", p.Bucket)

		_, err = pf.Lookup("missing")
		assert.Error(t, err)
	})

	t.Run("apply overlays only set fields", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Apply(Profile{Bucket: "other-trail", Region: "eu-west-1"})

		assert.Equal(t, "other-trail", cfg.Ingest.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
		assert.Equal(t, "AWSLogs/123456789012/CloudTrail/us-east-1", cfg.Ingest.Prefix)
	})
}
