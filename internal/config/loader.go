package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, the YAML file at path and MIA_*
// environment variables, in that order. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("health_interval", cfg.HealthInterval)
	v.SetDefault("min_server_version", cfg.MinServerVersion)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("update_check", cfg.UpdateCheck)
	v.SetDefault("confirm.command", cfg.Confirm.Command)
	v.SetDefault("confirm.flag", cfg.Confirm.Flag)
	v.SetDefault("confirm.marker", cfg.Confirm.Marker)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.limit", cfg.History.Limit)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies MIA_* environment variables on top of target.
func ParseEnv(target *Config) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
