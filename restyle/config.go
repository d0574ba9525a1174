package restyle

import "github.com/hazyhaar/redim/restyle/internal/config"

// Config re-exports the configuration types for callers outside the
// restyle tree.
type Config = config.Config

// LoadConfigFile reads a YAML configuration file with defaults applied.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}
