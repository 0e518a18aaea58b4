package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "filesystem", cfg.StorageBackend)
	assert.Equal(t, "models/churn_model.json", cfg.ModelKey)
	assert.Equal(t, 3600, cfg.CacheTTLSeconds)
	assert.Equal(t, "@every 1h", cfg.RefreshSchedule)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "churn-artifacts")
	t.Setenv("CACHE_TTL_SECONDS", "600")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.Equal(t, "churn-artifacts", cfg.S3Bucket)
	assert.Equal(t, 600, cfg.CacheTTLSeconds)
}

func TestLoadConfigFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
log_level: warn
orders_path: /srv/data/orders.csv
cache_ttl_seconds: 120
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	// Environment wins over the file.
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "/srv/data/orders.csv", cfg.OrdersPath)
	assert.Equal(t, 120, cfg.CacheTTLSeconds)
	// Untouched fields keep their defaults.
	assert.Equal(t, "filesystem", cfg.StorageBackend)
}

func TestValidateBackendRequirements(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageBackend = "s3"
	cfg.S3Bucket = ""
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.StorageBackend = "redis"
	assert.Error(t, cfg.Validate())
	cfg.RedisURL = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.StorageBackend = "gcs"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.CacheTTLSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsIntBadValue(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "not-a-number")
	assert.Equal(t, 42, getEnvAsInt("CACHE_TTL_SECONDS", 42))
}
