// Package config provides configuration management for the loader.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/omics-warehouse-loader/internal/domain"
)

// Manager loads and validates the loader configuration using Viper
type Manager struct {
	config *domain.Config
	viper  *viper.Viper
}

// NewManager creates a new configuration manager. An empty configFile means
// the default search paths are used; a missing file there is not an error.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{viper: viper.New()}
	if err := m.loadConfig(configFile); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment and defaults
func (m *Manager) loadConfig(configFile string) error {
	v := m.viper
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/omics-warehouse-loader/")
	}

	v.SetEnvPrefix("OMICS_LOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.viper

	v.SetDefault("species", "human")
	v.SetDefault("data_dir", "./data")

	// Resolver defaults
	v.SetDefault("resolver.base_url", "http://localhost:9090")
	v.SetDefault("resolver.timeout", "30s")
	v.SetDefault("resolver.rate_limit", 20)
	v.SetDefault("resolver.cache_size", 16384)

	// Cache defaults (warm resolver tier, disabled unless configured)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.ttl", "24h")

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/warehouse.db")
	v.SetDefault("store.migrations_path", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "omics_warehouse")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")

	// Status server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Result file defaults
	v.SetDefault("files.counts_file", "merged_gene_counts.txt")
	v.SetDefault("files.mztab_file", "out.mzTab")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if _, ok := config.TaxonID(); !ok {
		return fmt.Errorf("unsupported species: %q", config.Species)
	}
	if config.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if config.Resolver.BaseURL == "" {
		return fmt.Errorf("resolver base URL is required")
	}

	switch config.Store.Driver {
	case "memory":
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite store")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid store driver: %q", config.Store.Driver)
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the cache is enabled")
	}
	if config.Server.Enabled && (config.Server.Port <= 0 || config.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
