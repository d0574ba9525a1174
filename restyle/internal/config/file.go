// Package config handles redim configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level redim configuration.
type Config struct {
	Page     PageConfig     `yaml:"page"`
	Browser  BrowserConfig  `yaml:"browser"`
	Debounce DebounceConfig `yaml:"debounce"`
	Prefs    PrefsConfig    `yaml:"prefs"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// PageConfig defines the page to restyle.
type PageConfig struct {
	URL string `yaml:"url"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	Mode            string        `yaml:"mode"` // headless | headful
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// PrefsConfig locates the preference store.
type PrefsConfig struct {
	DBPath string `yaml:"db_path"`
}

// HTTPConfig exposes the control API.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields with working values.
func (c *Config) ApplyDefaults() {
	if c.Page.URL == "" {
		c.Page.URL = "https://x.com/home"
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headful"
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 100 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	if c.Prefs.DBPath == "" {
		c.Prefs.DBPath = "redim.db"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "127.0.0.1:8726"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
}
