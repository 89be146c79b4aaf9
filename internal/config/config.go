// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and ROLLCALL_ env vars.
// - Validate before use; errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file. ":memory:" keeps everything in process.
	DatabasePath string `koanf:"database_path"`

	// MatchThreshold is the largest Euclidean distance accepted as a match.
	MatchThreshold float64 `koanf:"match_threshold"`

	// CooldownWindowSeconds suppresses repeat attendance per identity. Zero disables it.
	CooldownWindowSeconds int `koanf:"cooldown_window_seconds"`

	// VectorDimension is the enforced feature vector length.
	VectorDimension int `koanf:"vector_dimension"`

	// Matcher selects the matching strategy: linear or hnsw.
	Matcher string `koanf:"matcher"`

	// CooldownShards sets the number of cooldown cache shards.
	CooldownShards int `koanf:"cooldown_shards"`

	// CooldownSweepIntervalSeconds sets how often expired cooldown entries are evicted.
	CooldownSweepIntervalSeconds int `koanf:"cooldown_sweep_interval_seconds"`

	// PendingQueueSize bounds events parked after a delivery failure.
	PendingQueueSize int `koanf:"pending_queue_size"`

	// DefaultLocation is recorded when an attempt names no location.
	DefaultLocation string `koanf:"default_location"`

	// MaxAttendanceLimit caps GET /attendance?limit.
	MaxAttendanceLimit int `koanf:"max_attendance_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                     "info",
		LogFormat:                    "text",
		Addr:                         ":9080",
		DatabasePath:                 "rollcall.db",
		MatchThreshold:               0.6,
		CooldownWindowSeconds:        60,
		VectorDimension:              128,
		Matcher:                      "linear",
		CooldownShards:               32,
		CooldownSweepIntervalSeconds: 30,
		PendingQueueSize:             10_000,
		DefaultLocation:              "Main",
		MaxAttendanceLimit:           1000,
	}
}

// CooldownWindow returns the cooldown window as a duration.
func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownWindowSeconds) * time.Second
}

// CooldownSweepInterval returns the janitor interval as a duration.
func (c *Config) CooldownSweepInterval() time.Duration {
	return time.Duration(c.CooldownSweepIntervalSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatabasePath == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.MatchThreshold < 0 || c.MatchThreshold != c.MatchThreshold:
		return fmt.Errorf("%w: match_threshold must be >= 0", ErrInvalidConfig)
	case c.CooldownWindowSeconds < 0:
		return fmt.Errorf("%w: cooldown_window_seconds must be >= 0", ErrInvalidConfig)
	case c.VectorDimension <= 0:
		return fmt.Errorf("%w: vector_dimension must be > 0", ErrInvalidConfig)
	case c.CooldownShards <= 0:
		return fmt.Errorf("%w: cooldown_shards must be > 0", ErrInvalidConfig)
	case c.CooldownSweepIntervalSeconds < 0:
		return fmt.Errorf("%w: cooldown_sweep_interval_seconds must be >= 0", ErrInvalidConfig)
	case c.PendingQueueSize <= 0:
		return fmt.Errorf("%w: pending_queue_size must be > 0", ErrInvalidConfig)
	case c.MaxAttendanceLimit <= 0:
		return fmt.Errorf("%w: max_attendance_limit must be > 0", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Matcher) {
	case "linear", "hnsw":
	default:
		return fmt.Errorf("%w: matcher must be linear or hnsw, got %q", ErrInvalidConfig, c.Matcher)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
