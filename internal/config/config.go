// Package config loads geocache's runtime configuration: store paths,
// default proximity radius, worker pool sizing, and memo/log tuning.
// It does not configure anything about the coalesce algorithm itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is geocache's complete runtime configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" json:"store"`
	Dispatch  DispatchConfig  `yaml:"dispatch" json:"dispatch"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Proximity ProximityConfig `yaml:"proximity" json:"proximity"`
}

// StoreConfig configures where posting stores live and how their
// prefix memos and decode caches are sized.
type StoreConfig struct {
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	MemoCacheSize  int    `yaml:"memo_cache_size" json:"memo_cache_size"`
	MemoPrefixMax  int    `yaml:"memo_prefix_max_grid_length" json:"memo_prefix_max_grid_length"`
	NormCacheSize  int    `yaml:"norm_cache_size" json:"norm_cache_size"`
}

// DispatchConfig configures the coalesce dispatcher's worker pool.
type DispatchConfig struct {
	Workers        int    `yaml:"workers" json:"workers"`
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
}

// LoggingConfig configures the slog JSON handler and optional file output.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int   `yaml:"max_size_mb" json:"max_size_mb"`
}

// ProximityConfig configures default scoring radius behavior.
type ProximityConfig struct {
	DefaultRadius float64 `yaml:"default_radius" json:"default_radius"`
}

// defaultDataDir returns ~/.geocache/stores, falling back to a temp dir.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".geocache", "stores")
	}
	return filepath.Join(home, ".geocache", "stores")
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:       defaultDataDir(),
			MemoCacheSize: 4096,
			MemoPrefixMax: 500000,
			NormCacheSize: 65536,
		},
		Dispatch: DispatchConfig{
			Workers:        runtime.NumCPU(),
			RequestTimeout: "5s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			FilePath:  "",
			MaxSizeMB: 64,
		},
		Proximity: ProximityConfig{
			DefaultRadius: 400,
		},
	}
}

// Load reads configuration from dir/.geocache.yaml (or .yml), falling back
// to defaults if no file is present, then applies GEOCACHE_* environment
// overrides. Precedence: defaults < config file < environment.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".geocache.yaml", ".geocache.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return c.loadYAML(path)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.Store.DataDir != "" {
		c.Store.DataDir = other.Store.DataDir
	}
	if other.Store.MemoCacheSize != 0 {
		c.Store.MemoCacheSize = other.Store.MemoCacheSize
	}
	if other.Store.MemoPrefixMax != 0 {
		c.Store.MemoPrefixMax = other.Store.MemoPrefixMax
	}
	if other.Store.NormCacheSize != 0 {
		c.Store.NormCacheSize = other.Store.NormCacheSize
	}
	if other.Dispatch.Workers != 0 {
		c.Dispatch.Workers = other.Dispatch.Workers
	}
	if other.Dispatch.RequestTimeout != "" {
		c.Dispatch.RequestTimeout = other.Dispatch.RequestTimeout
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Proximity.DefaultRadius != 0 {
		c.Proximity.DefaultRadius = other.Proximity.DefaultRadius
	}
}

// applyEnvOverrides applies GEOCACHE_* environment variable overrides,
// the highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEOCACHE_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("GEOCACHE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Dispatch.Workers = n
		}
	}
	if v := os.Getenv("GEOCACHE_REQUEST_TIMEOUT"); v != "" {
		c.Dispatch.RequestTimeout = v
	}
	if v := os.Getenv("GEOCACHE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GEOCACHE_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("GEOCACHE_DEFAULT_RADIUS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Proximity.DefaultRadius = f
		}
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Store.MemoPrefixMax < 0 {
		return fmt.Errorf("store.memo_prefix_max_grid_length must be non-negative, got %d", c.Store.MemoPrefixMax)
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch.workers must be positive, got %d", c.Dispatch.Workers)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Proximity.DefaultRadius <= 0 {
		return fmt.Errorf("proximity.default_radius must be positive, got %f", c.Proximity.DefaultRadius)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
