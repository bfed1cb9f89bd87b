// Package config loads the optional mixdown.toml tool configuration. The
// file tunes ambient behavior — cache location, pool spill threshold, hub
// endpoint and credentials. Command-line flags override the file; the file
// overrides the built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is looked up in the working directory when no explicit path is
// given.
const DefaultFile = "mixdown.toml"

type Config struct {
	Cache CacheConfig `toml:"cache"`
	Pools PoolConfig  `toml:"pools"`
	Hub   HubConfig   `toml:"hub"`
}

type CacheConfig struct {
	// Path of the global dedup store. Empty means per-run in-memory dedup.
	Path string `toml:"path"`
}

type PoolConfig struct {
	// MaxInMemory is the per-bucket record count above which pools spill
	// to on-disk shards.
	MaxInMemory int `toml:"max_in_memory"`
	// SpillDir holds pool shards. Empty means the system temp dir.
	SpillDir string `toml:"spill_dir"`
}

type HubConfig struct {
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func DefaultConfig() *Config {
	return &Config{
		Pools: PoolConfig{
			MaxInMemory: 2_000_000,
		},
		Hub: HubConfig{
			TimeoutSeconds: 60,
		},
	}
}

// Load reads path over the defaults. A missing DefaultFile is not an error;
// a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Pools.MaxInMemory <= 0 {
		return nil, fmt.Errorf("config %s: pools.max_in_memory must be positive", path)
	}
	return cfg, nil
}

// HubTimeout returns the per-request hub timeout.
func (c *Config) HubTimeout() time.Duration {
	return time.Duration(c.Hub.TimeoutSeconds) * time.Second
}
