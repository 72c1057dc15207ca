package config

import "time"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Retry   RetryConfig   `yaml:"retry"`
	Monitor MonitorConfig `yaml:"monitor"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig points at the judge.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// AuthConfig holds the bearer token, usually injected as ${JUDGE_TOKEN}.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// StalePeriod is the grace window after expiry. Unset means 30m; an explicit
	// 0s disables stale fallback.
	StalePeriod   *time.Duration `yaml:"stale_period"`
	SweepInterval time.Duration  `yaml:"sweep_interval"`
	TTL           TTLConfig      `yaml:"ttl"`
}

// Stale returns the configured grace window.
func (c CacheConfig) Stale() time.Duration {
	if c.StalePeriod == nil {
		return 0
	}
	return *c.StalePeriod
}

// TTLConfig overrides freshness per resource. Zero keeps the built-in value.
type TTLConfig struct {
	Problems    time.Duration `yaml:"problems"`
	Problem     time.Duration `yaml:"problem"`
	Submissions time.Duration `yaml:"submissions"`
	Submission  time.Duration `yaml:"submission"`
	Profile     time.Duration `yaml:"profile"`
}

// RetryConfig bounds request retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// MonitorConfig controls submission polling.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	Concurrency  int           `yaml:"concurrency"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
