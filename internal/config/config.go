// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/trustlog/internal/member"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	DBPath                        string        `env:"TRUSTLOG_DB" envDefault:"trustlog.db"`
	VerificationsRequiredToFlag   int           `env:"TRUSTLOG_VERIFICATIONS_REQUIRED_TO_FLAG" envDefault:"5"`
	VerificationsRequiredToVerify int           `env:"TRUSTLOG_VERIFICATIONS_REQUIRED_TO_VERIFY" envDefault:"1"`
	PollInterval                  time.Duration `env:"TRUSTLOG_POLL_INTERVAL" envDefault:"500ms"`
	LogLevel                      string        `env:"TRUSTLOG_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks thresholds, poll interval and log level.
func (c Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid config: poll interval must be positive, got %s", c.PollInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Thresholds returns the verification thresholds.
func (c Config) Thresholds() member.Thresholds {
	return member.Thresholds{
		ToVerify: c.VerificationsRequiredToVerify,
		ToFlag:   c.VerificationsRequiredToFlag,
	}
}

// Level returns the configured log level, or info if it is invalid.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps debug, info, warn and error (any case) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
