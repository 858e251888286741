package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultExtendThresholdMin is the trailing window before the deadline
	// within which a bid triggers auto-extension.
	DefaultExtendThresholdMin = 5
	// DefaultExtendDurationMin is how far a single extension pushes the
	// deadline.
	DefaultExtendDurationMin = 10
)

// Config holds all application settings. Sensitive or deploy-specific values
// can be overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auction struct {
		ExtendThresholdMin int `yaml:"extend_threshold_min"`
		ExtendDurationMin  int `yaml:"extend_duration_min"`
	} `yaml:"auction"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auction.ExtendThresholdMin == 0 {
		c.Auction.ExtendThresholdMin = DefaultExtendThresholdMin
	}
	if c.Auction.ExtendDurationMin == 0 {
		c.Auction.ExtendDurationMin = DefaultExtendDurationMin
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "localhost:8090"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Auction.ExtendThresholdMin < 0 {
		return fmt.Errorf("extend threshold must not be negative")
	}
	if c.Auction.ExtendDurationMin <= 0 {
		return fmt.Errorf("extend duration must be positive")
	}
	return nil
}

// ExtendThreshold returns the auto-extend trigger window as a duration.
func (c *Config) ExtendThreshold() time.Duration {
	return time.Duration(c.Auction.ExtendThresholdMin) * time.Minute
}

// ExtendDuration returns the auto-extend push amount as a duration.
func (c *Config) ExtendDuration() time.Duration {
	return time.Duration(c.Auction.ExtendDurationMin) * time.Minute
}

// overrideWithEnv replaces settings for which an environment variable is set.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("AUCTION_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if addr := os.Getenv("AUCTION_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if level := os.Getenv("AUCTION_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
