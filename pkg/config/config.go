package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the trust graph service
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	// Storage Configuration
	// StorageBackend is "postgres" or "memory"
	StorageBackend      string
	DatabaseURL         string
	DatabaseMaxConns    int
	DatabaseMinConns    int
	DatabaseMaxIdleTime int // seconds
	DatabaseMaxLifetime int // seconds

	// Identity Configuration
	// OwnerID is the base58 public key of the service owner; only the
	// owner may designate roots
	OwnerID string
	// HostID is the base58 public key of the local host; timestamp
	// tetraplets must originate from it
	HostID string

	// Service Configuration
	LogLevel string
}

// fileConfig mirrors Config for the optional YAML overlay
type fileConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	MetricsAddr    string `yaml:"metrics_addr"`
	StorageBackend string `yaml:"storage_backend"`
	DatabaseURL    string `yaml:"database_url"`
	OwnerID        string `yaml:"owner_id"`
	HostID         string `yaml:"host_id"`
	LogLevel       string `yaml:"log_level"`
}

// Load reads configuration from the environment, then overlays the YAML
// file named by TRUSTGRAPH_CONFIG_FILE when set.
func Load() (*Config, error) {
	cfg := &Config{
		// Server Configuration - safe defaults
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),

		// Storage Configuration - REQUIRED for postgres, no default URL
		StorageBackend:      getEnv("STORAGE_BACKEND", "postgres"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMinConns:    getEnvInt("DATABASE_MIN_CONNS", 5),
		DatabaseMaxIdleTime: getEnvInt("DATABASE_MAX_IDLE_TIME", 300),
		DatabaseMaxLifetime: getEnvInt("DATABASE_MAX_LIFETIME", 3600),

		// Identity Configuration - REQUIRED, no defaults
		OwnerID: getEnv("TRUSTGRAPH_OWNER_ID", ""),
		HostID:  getEnv("TRUSTGRAPH_HOST_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("TRUSTGRAPH_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// overlayFile applies non-empty values from a YAML file over the
// environment-derived configuration.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}
	if fc.MetricsAddr != "" {
		c.MetricsAddr = fc.MetricsAddr
	}
	if fc.StorageBackend != "" {
		c.StorageBackend = fc.StorageBackend
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.OwnerID != "" {
		c.OwnerID = fc.OwnerID
	}
	if fc.HostID != "" {
		c.HostID = fc.HostID
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "memory":
		// nothing to check
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.OwnerID == "" {
		return fmt.Errorf("TRUSTGRAPH_OWNER_ID is required")
	}
	if c.HostID == "" {
		return fmt.Errorf("TRUSTGRAPH_HOST_ID is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
