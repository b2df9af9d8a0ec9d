// Package config handles loading and parsing of blobstore server configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values applied when a setting is absent from the file.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 9000
	DefaultShutdownTimeout = 30
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultReadChunkSize   = 8192
	DefaultListPageSize    = 1000
	DefaultMaxObjectSize   = 5 << 30
)

// fallbackName is the example configuration consulted when the requested
// file does not exist.
const fallbackName = "blobstore.example.yaml"

// Config is the top-level configuration for the blobstore server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   StoreConfig   `yaml:"store"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown window in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint and HTTP instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StoreConfig holds settings for the in-memory engine and the object API.
type StoreConfig struct {
	// ReadChunkSize is the chunk size used when streaming object bodies.
	ReadChunkSize int `yaml:"read_chunk_size"`
	// ListPageSize is the default page size for object listings.
	ListPageSize int `yaml:"list_page_size"`
	// MaxObjectSize caps the size of a single uploaded object in bytes.
	MaxObjectSize int64 `yaml:"max_object_size"`
	// Containers are created at startup if they do not already exist.
	Containers []string `yaml:"containers"`
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Load reads a YAML configuration file from the given path and returns
// a parsed Config with defaults applied for unset values.
// If the file does not exist, Load tries blobstore.example.yaml in the same
// directory and its parent, then falls back to the built-in defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		data = readFallback(path)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFallback returns the first example configuration found next to path,
// or nil if there is none.
func readFallback(path string) []byte {
	fallbackPaths := []string{
		filepath.Join(filepath.Dir(path), fallbackName),
		filepath.Join(filepath.Dir(path), "..", fallbackName),
	}
	for _, fp := range fallbackPaths {
		if data, err := os.ReadFile(fp); err == nil {
			return data
		}
	}
	return nil
}

// Validate reports settings that cannot be served.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Store.ReadChunkSize < 0 {
		return fmt.Errorf("store.read_chunk_size must not be negative")
	}
	if c.Store.ListPageSize < 0 {
		return fmt.Errorf("store.list_page_size must not be negative")
	}
	if c.Store.MaxObjectSize < 0 {
		return fmt.Errorf("store.max_object_size must not be negative")
	}
	seen := make(map[string]bool, len(c.Store.Containers))
	for _, name := range c.Store.Containers {
		if name == "" {
			return fmt.Errorf("store.containers: empty container name")
		}
		if seen[name] {
			return fmt.Errorf("store.containers: duplicate container %q", name)
		}
		seen[name] = true
	}
	return nil
}

// Default returns a Config holding only the built-in defaults.
func Default() *Config {
	cfg := defaultConfig()
	applyDefaults(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			ReadChunkSize: DefaultReadChunkSize,
			ListPageSize:  DefaultListPageSize,
			MaxObjectSize: DefaultMaxObjectSize,
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value
// after YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Store.ReadChunkSize == 0 {
		cfg.Store.ReadChunkSize = DefaultReadChunkSize
	}
	if cfg.Store.ListPageSize == 0 {
		cfg.Store.ListPageSize = DefaultListPageSize
	}
	if cfg.Store.MaxObjectSize == 0 {
		cfg.Store.MaxObjectSize = DefaultMaxObjectSize
	}
}
