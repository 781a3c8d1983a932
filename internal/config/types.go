package config

import (
	"time"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/cache"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Policy    PolicyConfig    `yaml:"policy" mapstructure:"policy"`
	Detectors DetectorsConfig `yaml:"detectors" mapstructure:"detectors"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Cache     cache.Config    `yaml:"cache" mapstructure:"cache"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig tunes the per-client limiter.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// PolicyConfig selects the active policy and its reload behavior. Name is
// a builtin template (gdpr, pci, hipaa); File, when set, takes precedence
// and may be hot-reloaded.
type PolicyConfig struct {
	Name  string `yaml:"name" mapstructure:"name"`
	File  string `yaml:"file" mapstructure:"file"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
}

// DetectorsConfig tunes the detection registry.
type DetectorsConfig struct {
	Workers          int      `yaml:"workers" mapstructure:"workers"`
	Disabled         []string `yaml:"disabled" mapstructure:"disabled"`
	EntropyThreshold float64  `yaml:"entropy_threshold" mapstructure:"entropy_threshold"`
	EntropyMinLength int      `yaml:"entropy_min_length" mapstructure:"entropy_min_length"`
}

// AuditConfig selects the audit sinks in use.
type AuditConfig struct {
	JSONL    FileSinkConfig     `yaml:"jsonl" mapstructure:"jsonl"`
	Parquet  FileSinkConfig     `yaml:"parquet" mapstructure:"parquet"`
	Postgres PostgresSinkConfig `yaml:"postgres" mapstructure:"postgres"`
}

// FileSinkConfig is shared by the file-backed audit sinks.
type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// PostgresSinkConfig enables the database audit sink.
type PostgresSinkConfig struct {
	Enabled              bool `yaml:"enabled" mapstructure:"enabled"`
	audit.PostgresConfig `yaml:",inline" mapstructure:",squash"`
}

// EventsConfig controls the websocket feed.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 50,
				Burst:             100,
			},
		},
		Policy: PolicyConfig{
			Name:  "gdpr",
			Watch: true,
		},
		Detectors: DetectorsConfig{
			Workers: 4,
		},
		Cache: cache.Config{
			RedisURL:   "redis://localhost:6379/0",
			DefaultTTL: 5 * time.Minute,
			KeyPrefix:  "dsentinel:scrub:",
		},
		Events: EventsConfig{
			Enabled: true,
			Path:    "/ws",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
	cfg.Audit.JSONL = FileSinkConfig{Enabled: true, Path: "audit.jsonl"}
	return cfg
}
