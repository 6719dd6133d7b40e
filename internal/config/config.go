// Package config loads the factory environment settings from defaults, an
// optional YAML file, a .env file and FACTORY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Episode EpisodeConfig `mapstructure:"episode" yaml:"episode"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// EpisodeConfig holds the simulation settings
type EpisodeConfig struct {
	// Horizon is the episode length in simulated seconds
	Horizon float64 `mapstructure:"horizon" yaml:"horizon" validate:"gt=0"`

	// Valuation: sunk counts the free first level of each facility, purchased does not
	Valuation string `mapstructure:"valuation" yaml:"valuation" validate:"required,oneof=sunk purchased"`

	MaxSteps int    `mapstructure:"max_steps" yaml:"max_steps" validate:"min=1"`
	Policy   string `mapstructure:"policy" yaml:"policy" validate:"required"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`

	// Log format: json, text
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=json text"`
}

// ServerConfig holds the remote environment server settings
type ServerConfig struct {
	Address     string `mapstructure:"address" yaml:"address" validate:"required"`
	MaxSessions int    `mapstructure:"max_sessions" yaml:"max_sessions" validate:"min=1"`
}

// MetricsConfig holds metrics exposure configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"required,startswith=/"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (factory.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	registerDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("factory")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("FACTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Dump renders the configuration as YAML
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// registerDefaults makes every key known to viper so that environment
// variables are picked up by Unmarshal even without a config file
func registerDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("episode.horizon", d.Episode.Horizon)
	v.SetDefault("episode.valuation", d.Episode.Valuation)
	v.SetDefault("episode.max_steps", d.Episode.MaxSteps)
	v.SetDefault("episode.policy", d.Episode.Policy)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}
