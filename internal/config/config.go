// Package config loads and validates swarm.yml, the explicit startup
// configuration. Backend selection is a declared choice here, never a
// runtime capability probe.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the "backend" field.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// SwarmConfig represents the top-level swarm.yml configuration.
type SwarmConfig struct {
	Version     string             `yaml:"version"`
	Backend     string             `yaml:"backend"`
	StateDir    string             `yaml:"state_dir,omitempty"` // file backend only
	Redis       *RedisConfig       `yaml:"redis,omitempty"`
	Coordinator *CoordinatorConfig `yaml:"coordinator,omitempty"`
	Dispatcher  *DispatcherConfig  `yaml:"dispatcher,omitempty"`
}

// RedisConfig holds the remote backend connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// CoordinatorConfig tunes the convergence loop.
type CoordinatorConfig struct {
	MaxRounds            int    `yaml:"max_rounds,omitempty"`
	ConvergenceThreshold int    `yaml:"convergence_threshold,omitempty"`
	MaxWorkers           int    `yaml:"max_workers,omitempty"`
	SettleDelay          string `yaml:"settle_delay,omitempty"` // Go duration, realtime only
}

// DispatcherConfig points at the execution daemon.
type DispatcherConfig struct {
	URL string `yaml:"url"`
}

// Validate performs strict validation and applies defaults.
func (c *SwarmConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	switch c.Backend {
	case BackendFile:
		// StateDir defaults inside the blackboard package when empty.
	case BackendRedis:
		if c.Redis == nil {
			c.Redis = &RedisConfig{}
		}
		if c.Redis.Addr == "" {
			c.Redis.Addr = "localhost:6379"
		}
	case "":
		return fmt.Errorf("backend is required (use 'file' or 'redis')")
	default:
		return fmt.Errorf("unknown backend: %s (must be 'file' or 'redis')", c.Backend)
	}

	if c.Coordinator == nil {
		c.Coordinator = &CoordinatorConfig{}
	}
	if c.Coordinator.MaxRounds < 0 {
		return fmt.Errorf("coordinator.max_rounds must be >= 0, got %d", c.Coordinator.MaxRounds)
	}
	if c.Coordinator.ConvergenceThreshold < 0 {
		return fmt.Errorf("coordinator.convergence_threshold must be >= 0, got %d", c.Coordinator.ConvergenceThreshold)
	}
	if c.Coordinator.MaxWorkers < 0 {
		return fmt.Errorf("coordinator.max_workers must be >= 0, got %d", c.Coordinator.MaxWorkers)
	}
	if c.Coordinator.SettleDelay != "" {
		if _, err := time.ParseDuration(c.Coordinator.SettleDelay); err != nil {
			return fmt.Errorf("coordinator.settle_delay: %w", err)
		}
	}

	return nil
}

// SettleDelayDuration returns the parsed settle delay, or zero when unset.
// Validate must have accepted the config first.
func (c *SwarmConfig) SettleDelayDuration() time.Duration {
	if c.Coordinator == nil || c.Coordinator.SettleDelay == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Coordinator.SettleDelay)
	return d
}

// Load reads and validates swarm.yml from the specified path.
func Load(path string) (*SwarmConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config SwarmConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no swarm.yml exists: the
// file backend in the default state directory.
func Default() *SwarmConfig {
	return &SwarmConfig{
		Version:     "1.0",
		Backend:     BackendFile,
		Coordinator: &CoordinatorConfig{},
	}
}
