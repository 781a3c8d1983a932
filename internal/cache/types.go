package cache

import (
	"time"

	"github.com/raaihank/data-sentinel/internal/audit"
)

// CachedResult is a previously computed scrub outcome. Only derived data is
// stored: the scrubbed output and the audit projection, never the findings'
// original values beyond what the input itself carries.
type CachedResult struct {
	Output   string        `json:"output"`
	Entries  []audit.Entry `json:"entries"`
	CachedAt time.Time     `json:"cached_at"`
}

// Stats reports cache performance counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Config contains cache configuration.
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}
