package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	// OrdersPath points at the preprocessed order ledger CSV supplied by the
	// data-loading collaborator.
	OrdersPath string `yaml:"orders_path"`

	// Blob storage backend: "filesystem", "s3", or "redis".
	StorageBackend string `yaml:"storage_backend"`
	StoragePath    string `yaml:"storage_path"` // filesystem base directory
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	RedisURL       string `yaml:"redis_url"`

	// Artifact blob keys.
	ModelKey     string `yaml:"model_key"`
	ExplainerKey string `yaml:"explainer_key"`
	FeaturesKey  string `yaml:"features_key"`

	// RegistryPath is the SQLite file recording training runs.
	RegistryPath string `yaml:"registry_path"`

	// CacheTTLSeconds bounds how long a loaded snapshot is served before the
	// next request re-checks durable storage.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// RefreshSchedule is a cron spec for the background snapshot re-check.
	RefreshSchedule string `yaml:"refresh_schedule"`
}

func defaultConfig() *Config {
	return &Config{
		Environment:     "development",
		LogLevel:        "info",
		LogFormat:       "text",
		OrdersPath:      "data/orders.csv",
		StorageBackend:  "filesystem",
		StoragePath:     "data/artifacts",
		ModelKey:        "models/churn_model.json",
		ExplainerKey:    "models/churn_explainer.json",
		FeaturesKey:     "models/customer_features_full.json",
		RegistryPath:    "data/registry.db",
		CacheTTLSeconds: 3600,
		RefreshSchedule: "@every 1h",
	}
}

// applyEnv overrides config fields from environment variables when set
func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.OrdersPath = getEnv("ORDERS_PATH", c.OrdersPath)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.StoragePath = getEnv("STORAGE_PATH", c.StoragePath)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.ModelKey = getEnv("MODEL_KEY", c.ModelKey)
	c.ExplainerKey = getEnv("EXPLAINER_KEY", c.ExplainerKey)
	c.FeaturesKey = getEnv("FEATURES_KEY", c.FeaturesKey)
	c.RegistryPath = getEnv("REGISTRY_PATH", c.RegistryPath)
	c.CacheTTLSeconds = getEnvAsInt("CACHE_TTL_SECONDS", c.CacheTTLSeconds)
	c.RefreshSchedule = getEnv("REFRESH_SCHEDULE", c.RefreshSchedule)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := defaultConfig()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigFile loads configuration from a YAML file. Environment variables
// override file values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks backend-specific requirements
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "filesystem":
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the filesystem backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
