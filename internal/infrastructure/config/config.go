// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	tolerance := cfg.Reconcile.AmountTolerance
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconcileConfig holds the engine-wide matching settings
type ReconcileConfig struct {
	AmountTolerance        string         `yaml:"amount_tolerance"`          // currency units, e.g. "1.0"
	OrderIDTolerance       string         `yaml:"order_id_tolerance"`        // e.g. "0.01"
	DomainDateWindowDays   int            `yaml:"domain_date_window_days"`   // default 3
	FallbackDateWindowDays int            `yaml:"fallback_date_window_days"` // default 7
	BatchSize              int            `yaml:"batch_size"`                // write chunk size, default 50
	WriteConcurrency       int            `yaml:"write_concurrency"`         // in-flight writes, default 8
	LeaseTTLSeconds        int            `yaml:"lease_ttl_seconds"`         // single-writer lease, default 600
	Sources                []SourceConfig `yaml:"sources"`
}

// SourceConfig describes one payment source and which cascade strategies
// its records support
type SourceConfig struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"` // "gateway" or "bank"
	Strategies []string `yaml:"strategies"`
}

// APIConfig holds the read-only results API settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", "reconciliation.db"),
		},
		Reconcile: ReconcileConfig{
			AmountTolerance:        getEnv("RECON_AMOUNT_TOLERANCE", "1.0"),
			OrderIDTolerance:       getEnv("RECON_ORDER_ID_TOLERANCE", "0.01"),
			DomainDateWindowDays:   getEnvInt("RECON_DOMAIN_DATE_WINDOW_DAYS", 3),
			FallbackDateWindowDays: getEnvInt("RECON_FALLBACK_DATE_WINDOW_DAYS", 7),
			BatchSize:              getEnvInt("RECON_BATCH_SIZE", 50),
			WriteConcurrency:       getEnvInt("RECON_WRITE_CONCURRENCY", 8),
			LeaseTTLSeconds:        getEnvInt("RECON_LEASE_TTL_SECONDS", 600),
			Sources:                DefaultSources(),
		},
		API: APIConfig{
			Port:           getEnvInt("RECON_API_PORT", 8080),
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// DefaultSources returns the source roster the production feeds use.
// Strategy order within a source is the cascade order.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name: "stripe",
			Kind: "gateway",
			Strategies: []string{
				"order-id", "email+amount", "domain+amount+date", "amount+date",
			},
		},
		{
			Name: "gocardless",
			Kind: "gateway",
			Strategies: []string{
				"order-id", "amount+date", // direct-debit feed: no reliable email
			},
		},
		{
			Name: "bank",
			Kind: "bank",
			Strategies: []string{
				"order-id", "payer-name", "amount+date",
			},
		},
	}
}

// Source finds a source by name.
func (c *Config) Source(name string) (SourceConfig, error) {
	for _, s := range c.Reconcile.Sources {
		if s.Name == name {
			return s, nil
		}
	}
	return SourceConfig{}, fmt.Errorf("unknown source %q", name)
}

// applyDefaults fills zero values left by a sparse YAML file
func (c *Config) applyDefaults() {
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconciliation.db"
	}
	if c.Reconcile.AmountTolerance == "" {
		c.Reconcile.AmountTolerance = "1.0"
	}
	if c.Reconcile.OrderIDTolerance == "" {
		c.Reconcile.OrderIDTolerance = "0.01"
	}
	if c.Reconcile.DomainDateWindowDays == 0 {
		c.Reconcile.DomainDateWindowDays = 3
	}
	if c.Reconcile.FallbackDateWindowDays == 0 {
		c.Reconcile.FallbackDateWindowDays = 7
	}
	if c.Reconcile.BatchSize == 0 {
		c.Reconcile.BatchSize = 50
	}
	if c.Reconcile.WriteConcurrency == 0 {
		c.Reconcile.WriteConcurrency = 8
	}
	if c.Reconcile.LeaseTTLSeconds == 0 {
		c.Reconcile.LeaseTTLSeconds = 600
	}
	if len(c.Reconcile.Sources) == 0 {
		c.Reconcile.Sources = DefaultSources()
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
