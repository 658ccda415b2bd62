package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to format show times
	// (e.g. "America/Chicago"). Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron spec (standard 5-field or "@every 30s") that
	// drives board recomputation.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// SchedulePath points at a festival JSON document. Empty uses the
	// document bundled into the binary.
	SchedulePath string `yaml:"schedule_path" json:"schedule_path"`

	// WatchSchedule reloads SchedulePath when it changes on disk.
	WatchSchedule bool `yaml:"watch_schedule" json:"watch_schedule"`

	// PastPolicy is "drop" (default) or "far_future".
	PastPolicy string `yaml:"past_policy" json:"past_policy"`

	// TimeStyle is "short" (e.g. "6:50 PM") or "full".
	TimeStyle string `yaml:"time_style" json:"time_style"`

	// ShowLengthMinutes is the event length used by the calendar export.
	ShowLengthMinutes int `yaml:"show_length_minutes" json:"show_length_minutes"`

	// RateLimitPerMinute caps /api requests per client IP. Zero disables.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultRefresh    = "@every 30s"
	defaultShowLength = 30
	defaultRateLimit  = 120
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             defaultListen,
		Timezone:           "",
		RefreshCron:        defaultRefresh,
		SchedulePath:       "",
		WatchSchedule:      false,
		PastPolicy:         "drop",
		TimeStyle:          "short",
		ShowLengthMinutes:  defaultShowLength,
		RateLimitPerMinute: defaultRateLimit,
		LogLevel:           "info",
		LogFormat:          "json",
		BasicAuth:          nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}

	switch strings.ToLower(c.PastPolicy) {
	case "drop", "far_future":
		c.PastPolicy = strings.ToLower(c.PastPolicy)
	default:
		c.PastPolicy = "drop"
	}

	switch strings.ToLower(c.TimeStyle) {
	case "short", "full":
		c.TimeStyle = strings.ToLower(c.TimeStyle)
	default:
		c.TimeStyle = "short"
	}

	if c.ShowLengthMinutes <= 0 {
		c.ShowLengthMinutes = defaultShowLength
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if strings.ToLower(c.LogFormat) != "console" {
		c.LogFormat = "json"
	} else {
		c.LogFormat = "console"
	}
}

// envOverrides are read from the process environment after the file. Empty
// values leave the file value alone.
type envOverrides struct {
	Listen       string `env:"FESTSCHED_LISTEN"`
	Timezone     string `env:"FESTSCHED_TIMEZONE"`
	Refresh      string `env:"FESTSCHED_REFRESH"`
	SchedulePath string `env:"FESTSCHED_SCHEDULE_PATH"`
	LogLevel     string `env:"FESTSCHED_LOG_LEVEL"`
}

// ApplyEnv overlays FESTSCHED_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.Refresh != "" {
		c.RefreshCron = o.Refresh
	}
	if o.SchedulePath != "" {
		c.SchedulePath = o.SchedulePath
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied in both cases but never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically with
// 0600 permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return renameio.WriteFile(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
