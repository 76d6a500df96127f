// Package config loads and saves marcstream tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dchud/marcstream/pkg/pool"
)

// Config holds the tunables for the decode pipeline and batch reader.
type Config struct {
	// Workers is the decode worker count. Zero means all available
	// cores; the MARCSTREAM_WORKERS environment variable overrides
	// both.
	Workers int `yaml:"workers"`

	// ChunkSize is the producer read size in bytes.
	ChunkSize int `yaml:"chunk_size"`

	// ChannelCapacity bounds buffered decoded records.
	ChannelCapacity int `yaml:"channel_capacity"`

	// Batch limits for the interop reader.
	MaxBatchRecords int `yaml:"max_batch_records"`
	MaxBatchBytes   int `yaml:"max_batch_bytes"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:         0, // all cores
		ChunkSize:       512 * 1024,
		ChannelCapacity: 1000,
		MaxBatchRecords: 100,
		MaxBatchBytes:   300 * 1024,
	}
}

// ResolveWorkers applies the environment override and the all-cores
// default to the configured worker count.
func (c *Config) ResolveWorkers() int {
	if v := os.Getenv(pool.WorkersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if c.Workers > 0 {
		return c.Workers
	}
	return pool.DefaultWorkers()
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
