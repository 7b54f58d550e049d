// Package config loads mia settings from ~/.mia/config.yaml and MIA_* environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultHealthInterval = 30 * time.Second
	DefaultHistoryLimit   = 500
)

type Config struct {
	ServerURL        string        `mapstructure:"server_url" yaml:"server_url" env:"MIA_SERVER_URL"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" env:"MIA_REQUEST_TIMEOUT"`
	HealthInterval   time.Duration `mapstructure:"health_interval" yaml:"health_interval" env:"MIA_HEALTH_INTERVAL"`
	MinServerVersion string        `mapstructure:"min_server_version" yaml:"min_server_version" env:"MIA_MIN_SERVER_VERSION"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level" env:"MIA_LOG_LEVEL"`
	UpdateCheck      bool          `mapstructure:"update_check" yaml:"update_check" env:"MIA_UPDATE_CHECK"`
	Confirm          ConfirmConfig `mapstructure:"confirm" yaml:"confirm"`
	History          HistoryConfig `mapstructure:"history" yaml:"history"`
}

// ConfirmConfig names the interpreter command that needs human approval.
type ConfirmConfig struct {
	Command string `mapstructure:"command" yaml:"command" env:"MIA_CONFIRM_COMMAND"`
	Flag    string `mapstructure:"flag" yaml:"flag" env:"MIA_CONFIRM_FLAG"`
	Marker  string `mapstructure:"marker" yaml:"marker" env:"MIA_CONFIRM_MARKER"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" env:"MIA_HISTORY_ENABLED"`
	// Limit is the number of runs kept; zero keeps everything.
	Limit int `mapstructure:"limit" yaml:"limit" env:"MIA_HISTORY_LIMIT"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServerURL:      DefaultServerURL,
		RequestTimeout: DefaultRequestTimeout,
		HealthInterval: DefaultHealthInterval,
		LogLevel:       "info",
		UpdateCheck:    true,
		Confirm: ConfirmConfig{
			Command: "rmdisk",
			Flag:    "-confirm=true",
			Marker:  "CONFIRM_RMDISK:",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   DefaultHistoryLimit,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.ServerURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("server_url must be an http(s) URL with a host, got %q", c.ServerURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive")
	}
	if c.MinServerVersion != "" {
		if _, err := semver.NewVersion(c.MinServerVersion); err != nil {
			return fmt.Errorf("min_server_version %q is not a semantic version: %w", c.MinServerVersion, err)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Confirm.Command) == "" {
		return fmt.Errorf("confirm.command is required")
	}
	if strings.TrimSpace(c.Confirm.Flag) == "" {
		return fmt.Errorf("confirm.flag is required")
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	return nil
}

// Level parses LogLevel into a zap level.
func (c Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
