package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source selection for the acquisition layer.
const (
	SourceWarehouse   = "warehouse"
	SourceOperational = "operational"
)

// Config represents the complete configuration for the retention ETL.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Warehouse   WarehouseConfig `yaml:"warehouse"`
	Operational DatabaseConfig  `yaml:"operational"`
	Sink        DatabaseConfig  `yaml:"sink"`
	Job         JobConfig       `yaml:"job"`
	LogLevel    string          `yaml:"log_level"`
}

// ServerConfig represents the admin HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WarehouseConfig represents the analytics warehouse connection.
type WarehouseConfig struct {
	DSN string `yaml:"dsn"`
}

// DatabaseConfig represents a Postgres connection pool configuration.
type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
}

// JobConfig represents the batch job parameters.
type JobConfig struct {
	// Source picks the acquisition strategy: "warehouse" or
	// "operational".
	Source string `yaml:"source"`

	// Interval between daemon-mode runs.
	Interval time.Duration `yaml:"interval"`

	// Historical lookback windows, measured from the matrix watermark.
	PaymentLookbackDays int `yaml:"payment_lookback_days"`
	LoginLookbackDays   int `yaml:"login_lookback_days"`

	// DefaultWatermarkDays seeds the watermark (today minus this many
	// days) when an output table has no rows yet.
	DefaultWatermarkDays int `yaml:"default_watermark_days"`
}

// SetDefaults fills the optional parameters that were left unset.
func (c *Config) SetDefaults() {
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Job.Source == "" {
		c.Job.Source = SourceWarehouse
	}
	if c.Job.Interval == 0 {
		c.Job.Interval = 24 * time.Hour
	}
	if c.Job.PaymentLookbackDays == 0 {
		c.Job.PaymentLookbackDays = 365
	}
	if c.Job.LoginLookbackDays == 0 {
		c.Job.LoginLookbackDays = 30
	}
	if c.Job.DefaultWatermarkDays == 0 {
		c.Job.DefaultWatermarkDays = 9
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Sink.URL == "" {
		return fmt.Errorf("sink database URL is required")
	}

	switch c.Job.Source {
	case SourceWarehouse:
		if c.Warehouse.DSN == "" {
			return fmt.Errorf("warehouse DSN is required for the warehouse source")
		}
	case SourceOperational:
		if c.Operational.URL == "" {
			return fmt.Errorf("operational database URL is required for the operational source")
		}
	default:
		return fmt.Errorf("unknown acquisition source: %q", c.Job.Source)
	}

	if c.Job.PaymentLookbackDays < c.Job.LoginLookbackDays {
		return fmt.Errorf("payment lookback (%d) must cover the login lookback (%d)",
			c.Job.PaymentLookbackDays, c.Job.LoginLookbackDays)
	}

	return nil
}

// GetSinkPoolConfig returns the pgxpool configuration of the reporting
// database.
func (c *Config) GetSinkPoolConfig() (*pgxpool.Config, error) {
	return poolConfig(c.Sink)
}

// GetOperationalPoolConfig returns the pgxpool configuration of the
// operational store.
func (c *Config) GetOperationalPoolConfig() (*pgxpool.Config, error) {
	return poolConfig(c.Operational)
}

func poolConfig(db DatabaseConfig) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if db.MaxConnections > 0 {
		config.MaxConns = int32(db.MaxConnections)
	}
	if db.MinConnections > 0 {
		config.MinConns = int32(db.MinConnections)
	}
	if db.MaxLifetime > 0 {
		config.MaxConnLifetime = db.MaxLifetime
	}
	if db.IdleTimeout > 0 {
		config.MaxConnIdleTime = db.IdleTimeout
	}

	return config, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.LogLevel == "debug"
}
