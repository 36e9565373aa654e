package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/live"
)

// Config represents the top-level eventlook configuration
type Config struct {
	LogRoot string          `yaml:"log_root"`
	EnvFile string          `yaml:"env_file"`
	Read    ReadConfig      `yaml:"read"`
	API     APIConfig       `yaml:"api"`
	Live    LiveConfig      `yaml:"live"`
	Filters filter.Criteria `yaml:"filters"`
}

// ReadConfig holds defaults for historical reads
type ReadConfig struct {
	Range       string `yaml:"range"`        // how far back to read, e.g. "24h"
	NewestFirst *bool  `yaml:"newest_first"` // nil = true
	MaxEvents   int    `yaml:"max_events"`
}

// APIConfig defines the HTTP API configuration
type APIConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Auth  *bool  `yaml:"auth,omitempty"` // nil = auto-determine based on host
	Token string `yaml:"token,omitempty"`
}

// LiveConfig sizes the live hubs and channel watchers
type LiveConfig struct {
	BufferSize         int `yaml:"buffer_size"`
	SubscriptionBuffer int `yaml:"subscription_buffer"`
	WatchBuffer        int `yaml:"watch_buffer"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LogRoot == "" {
		config.LogRoot = constants.DefaultLogRoot
	}
	if config.Read.Range == "" {
		config.Read.Range = constants.DefaultReadRange.String()
	}
	if config.Read.NewestFirst == nil {
		newestFirst := true
		config.Read.NewestFirst = &newestFirst
	}
	if config.Read.MaxEvents == 0 {
		config.Read.MaxEvents = constants.DefaultMaxEvents
	}
	if config.API.Port == 0 {
		config.API.Port = constants.DefaultAPIPort
	}
	if config.API.Host == "" {
		config.API.Host = constants.DefaultAPIHost
	}
	if config.Live.BufferSize == 0 {
		config.Live.BufferSize = constants.DefaultLiveBufferSize
	}
	if config.Live.SubscriptionBuffer == 0 {
		config.Live.SubscriptionBuffer = constants.DefaultSubscriptionBuffer
	}
	if config.Live.WatchBuffer == 0 {
		config.Live.WatchBuffer = constants.DefaultWatchBuffer
	}
}

// ReadRange returns the configured read range. Call after Validate.
func (c *Config) ReadRange() time.Duration {
	d, err := time.ParseDuration(c.Read.Range)
	if err != nil {
		return constants.DefaultReadRange
	}
	return d
}

// NewestFirst returns the configured read direction
func (c *Config) NewestFirst() bool {
	return c.Read.NewestFirst == nil || *c.Read.NewestFirst
}

// HubConfig converts the live settings for the live package
func (c *Config) HubConfig() live.Config {
	return live.Config{
		BufferSize:         c.Live.BufferSize,
		SubscriptionBuffer: c.Live.SubscriptionBuffer,
	}
}
