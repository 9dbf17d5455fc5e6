package domain

import (
	"time"
)

// Config is the complete loader configuration.
type Config struct {
	Species  string         `mapstructure:"species"` // "human" or "mouse"
	DataDir  string         `mapstructure:"data_dir"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Files    FilesConfig    `mapstructure:"files"`
}

// ResolverConfig configures the external identifier-resolver client.
type ResolverConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
	CacheSize int           `mapstructure:"cache_size"` // in-memory LRU entries
}

// CacheConfig configures the optional Redis warm tier for resolver results.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Enabled  bool          `mapstructure:"enabled"`
}

// StoreConfig selects the warehouse backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // "memory", "sqlite" or "postgres"
	SQLitePath string `mapstructure:"sqlite_path"`
	// MigrationsPath points at the postgres migration files; empty skips
	// schema migration on startup.
	MigrationsPath string `mapstructure:"migrations_path"`
}

// DatabaseConfig configures the Postgres warehouse backend.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig configures the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// FilesConfig names the result files the loader looks for next to each
// metadata document.
type FilesConfig struct {
	CountsFile string `mapstructure:"counts_file"`
	MzTabFile  string `mapstructure:"mztab_file"`
}

// TaxonID maps the configured species name to its taxon ID, returning false
// for unsupported species.
func (c *Config) TaxonID() (string, bool) {
	switch c.Species {
	case "human":
		return HumanTaxonID, true
	case "mouse":
		return MouseTaxonID, true
	default:
		return "", false
	}
}
