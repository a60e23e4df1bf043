package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carlostoek/dianabot-auctions/internal/leader"
)

// Config represents the application configuration.
type Config struct {
	Database       DatabaseConfig  `yaml:"database"`
	Server         ServerConfig    `yaml:"server"`
	Telemetry      TelemetryConfig `yaml:"telemetry"`
	LeaderElection leader.Config   `yaml:"leader_election"`
	Engine         EngineConfig    `yaml:"engine"`
	NATS           NATSConfig      `yaml:"nats"`
	Redis          RedisConfig     `yaml:"redis"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "postgres" or "memory"
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// EngineConfig holds auction engine settings.
type EngineConfig struct {
	// TickInterval is how often the lifecycle sweep runs.
	TickInterval time.Duration `yaml:"tick_interval"`
	// EndingSoonWindow is how far ahead of ends_at the ending-soon
	// notification fires.
	EndingSoonWindow time.Duration `yaml:"ending_soon_window"`
	// DefaultMinIncrement applies when an auction is created without one.
	DefaultMinIncrement int64 `yaml:"default_min_increment"`
	// DefaultExtensionWindow applies to auto-extend auctions created
	// without an explicit window.
	DefaultExtensionWindow time.Duration `yaml:"default_extension_window"`
	// NotifyBuffer is the size of the notification fan-out queue.
	NotifyBuffer int `yaml:"notify_buffer"`
}

// NATSConfig holds notification publisher settings.
type NATSConfig struct {
	URL string `yaml:"url"` // empty disables NATS publishing
}

// RedisConfig holds view cache settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"` // empty disables the cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	ViewTTL  time.Duration `yaml:"view_ttl"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "postgres",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		LeaderElection: leader.Defaults(),
		Engine: EngineConfig{
			TickInterval:           10 * time.Second,
			EndingSoonWindow:       5 * time.Minute,
			DefaultMinIncrement:    10,
			DefaultExtensionWindow: 5 * time.Minute,
			NotifyBuffer:           256,
		},
		Redis: RedisConfig{
			ViewTTL: 30 * time.Second,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"postgres\" or \"memory\"", c.Database.Driver)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval)
	}
	if c.Engine.DefaultMinIncrement <= 0 {
		return fmt.Errorf("engine.default_min_increment must be positive, got %d", c.Engine.DefaultMinIncrement)
	}
	return nil
}
