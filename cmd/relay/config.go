package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the relay broker's YAML configuration file.
type Config struct {
	Listen            string `yaml:"listen"`
	MaxClientsPerRoom int    `yaml:"max_clients_per_room"`
	RetainedCap       int    `yaml:"retained_cap"`
	WriteTimeout      string `yaml:"write_timeout"`
}

// DefaultConfig returns the stock broker configuration.
func DefaultConfig() Config {
	return Config{
		Listen:            ":8090",
		MaxClientsPerRoom: 32,
		RetainedCap:       1024,
		WriteTimeout:      "10s",
	}
}

// LoadConfig reads a YAML config file, filling unset fields from defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.MaxClientsPerRoom < 0 {
		return fmt.Errorf("max_clients_per_room must be non-negative, got %d", c.MaxClientsPerRoom)
	}
	if c.RetainedCap < 0 {
		return fmt.Errorf("retained_cap must be non-negative, got %d", c.RetainedCap)
	}
	if c.WriteTimeout != "" {
		if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
			return fmt.Errorf("invalid write_timeout %q: %w", c.WriteTimeout, err)
		}
	}
	return nil
}

// GetWriteTimeout parses the write timeout, falling back to the default.
func (c Config) GetWriteTimeout() time.Duration {
	if c.WriteTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
