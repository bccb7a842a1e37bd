// Package config loads and validates the EdgeWatch agent configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/edgewatch/internal/source"
)

// Config holds every configurable value for the agent.
type Config struct {
	// Platform location.
	Protocol string `mapstructure:"protocol"`
	Host     string `mapstructure:"host"`

	// Per-service API port overrides.
	PortData     string `mapstructure:"port_data"`
	PortMetadata string `mapstructure:"port_metadata"`
	PortCommand  string `mapstructure:"port_command"`
	PortLogging  string `mapstructure:"port_logging"`

	// Capability gates.
	EventsPerSecond bool `mapstructure:"events_per_second"`
	NumberOfDevices bool `mapstructure:"number_of_devices"`
	Metrics         bool `mapstructure:"metrics"`

	// Cycle cadence and per-request deadline.
	UpdateEvery  time.Duration `mapstructure:"update_every"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// Snapshot history database. Empty disables persistence.
	DBPath string `mapstructure:"db_path"`

	// HTTP listen address for /metrics and the JSON API.
	ListenAddr string `mapstructure:"listen_addr"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from, in decreasing priority: EDGEWATCH_*
// environment variables, an optional YAML file at path (or ./edgewatch.yaml
// when path is empty), and built-in defaults matching a stock EdgeX Fuji
// deployment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("protocol", "http")
	v.SetDefault("host", "localhost")
	v.SetDefault("port_data", "48080")
	v.SetDefault("port_metadata", "48081")
	v.SetDefault("port_command", "48082")
	v.SetDefault("port_logging", "48061")
	v.SetDefault("events_per_second", true)
	v.SetDefault("number_of_devices", true)
	v.SetDefault("metrics", true)
	v.SetDefault("update_every", "5s")
	v.SetDefault("fetch_timeout", "2s")
	v.SetDefault("db_path", "")
	v.SetDefault("listen_addr", ":9870")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("edgewatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	} else {
		v.SetConfigName("edgewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// The file is optional when no explicit path was given.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Protocol != "http" && c.Protocol != "https" {
		return fmt.Errorf("protocol must be http or https, got %q", c.Protocol)
	}
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.UpdateEvery <= 0 {
		return fmt.Errorf("update_every must be positive, got %v", c.UpdateEvery)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %v", c.FetchTimeout)
	}
	return nil
}

// Platform converts the configuration into the source package's view of the
// EdgeX deployment.
func (c *Config) Platform() source.Platform {
	return source.Platform{
		Protocol:        c.Protocol,
		Host:            c.Host,
		DataPort:        c.PortData,
		MetadataPort:    c.PortMetadata,
		CommandPort:     c.PortCommand,
		LoggingPort:     c.PortLogging,
		EventsPerSecond: c.EventsPerSecond,
		NumberOfDevices: c.NumberOfDevices,
		Metrics:         c.Metrics,
	}
}
