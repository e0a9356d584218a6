// Package config loads and validates the caster's YAML configuration,
// grounded on original_source/src/ipcaster/IPCasterOptions.hpp and
// stylistically on ssungk-SOL's internal/sol/config.go
// (GetConfigWithDefaults/LoadConfig/validate).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the caster's full runtime configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Muxer   MuxerConfig   `yaml:"muxer"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the optional REST facade.
type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// MuxerConfig configures the send-side timing loop.
type MuxerConfig struct {
	BurstPeriod time.Duration `yaml:"burst_period"`
	Preroll     time.Duration `yaml:"preroll"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GetConfigWithDefaults returns the caster's default configuration.
func GetConfigWithDefaults() *Config {
	return &Config{
		API: APIConfig{
			Enabled: true,
			Port:    8080,
		},
		Muxer: MuxerConfig{
			BurstPeriod: 4 * time.Millisecond,
			Preroll:     40 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from path, falling back to defaults if the
// file does not exist. A present file's values are merged over the
// defaults, then validated.
func LoadConfig(path string) (*Config, error) {
	config := GetConfigWithDefaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("config file not found, using defaults", "path", path)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Info("config loaded", "path", path, "apiPort", config.API.Port,
		"burstPeriod", config.Muxer.BurstPeriod, "preroll", config.Muxer.Preroll,
		"logLevel", config.Logging.Level)
	return config, nil
}

// validate checks the configuration is within acceptable ranges.
func (c *Config) validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d (must be between 1-65535)", c.API.Port)
	}

	if c.Muxer.BurstPeriod <= 0 || c.Muxer.BurstPeriod > time.Second {
		return fmt.Errorf("invalid muxer burst_period: %v (must be between 0-1s)", c.Muxer.BurstPeriod)
	}

	if c.Muxer.Preroll <= 0 || c.Muxer.Preroll > 10*time.Second {
		return fmt.Errorf("invalid muxer preroll: %v (must be between 0-10s)", c.Muxer.Preroll)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	return nil
}

// SlogLevel returns the slog.Level corresponding to the configured level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
