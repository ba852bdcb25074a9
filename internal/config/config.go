// Package config loads the tower configuration file and the per-mode
// brokerage credentials.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/exchangetower/tower/internal/model"
	"github.com/exchangetower/tower/internal/retry"
)

// Config is the full daemon configuration, read from config.yaml under the
// tower base directory. Absent fields fall back to defaults.
type Config struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Retry     RetryConfig     `yaml:"retry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Alpaca    AlpacaConfig    `yaml:"alpaca"`
}

type DaemonConfig struct {
	Workers            int `yaml:"workers"`
	ScanIntervalSec    int `yaml:"scan_interval_sec"`
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

type RateLimitConfig struct {
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
}

type DedupeConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type RetryConfig struct {
	RateLimitMaxAttempts   int `yaml:"rate_limit_max_attempts"`
	ServerErrorMaxAttempts int `yaml:"server_error_max_attempts"`
	BaseDelaySec           int `yaml:"base_delay_sec"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AlpacaConfig struct {
	PaperBaseURL string `yaml:"paper_base_url"`
	LiveBaseURL  string `yaml:"live_base_url"`
	DataBaseURL  string `yaml:"data_base_url"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path. A missing file is not an error; the
// defaults apply.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Daemon.Workers <= 0 {
		c.Daemon.Workers = 4
	}
	if c.Daemon.ScanIntervalSec <= 0 {
		c.Daemon.ScanIntervalSec = 10
	}
	if c.Daemon.ShutdownTimeoutSec <= 0 {
		c.Daemon.ShutdownTimeoutSec = 30
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 200
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 200
	}
	if c.Dedupe.CacheSize <= 0 {
		c.Dedupe.CacheSize = 1024
	}
	if c.Retry.RateLimitMaxAttempts <= 0 {
		c.Retry.RateLimitMaxAttempts = 5
	}
	if c.Retry.ServerErrorMaxAttempts <= 0 {
		c.Retry.ServerErrorMaxAttempts = 3
	}
	if c.Retry.BaseDelaySec <= 0 {
		c.Retry.BaseDelaySec = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Alpaca.TimeoutSec <= 0 {
		c.Alpaca.TimeoutSec = 30
	}
}

func (c *Config) validate() error {
	if c.Daemon.Workers > 32 {
		return errors.Newf("daemon.workers must be 1-32, got %d", c.Daemon.Workers)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.Newf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Policy converts the retry section into the dispatcher's retry policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		RateLimitMaxAttempts:   r.RateLimitMaxAttempts,
		ServerErrorMaxAttempts: r.ServerErrorMaxAttempts,
		BaseDelay:              time.Duration(r.BaseDelaySec) * time.Second,
	}
}

// Timeout returns the upstream HTTP timeout.
func (a AlpacaConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// BaseURLFor returns the configured trading API base for a mode, empty when
// the built-in endpoint should be used.
func (a AlpacaConfig) BaseURLFor(mode model.Mode) string {
	if mode == model.ModeLive {
		return a.LiveBaseURL
	}
	return a.PaperBaseURL
}
