package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config represents the main Stencil configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Source acquisition
	Source SourceConfig `json:"source" mapstructure:"source"`

	// Session store
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Generation
	Generate GenerateConfig `json:"generate" mapstructure:"generate"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// SourceConfig holds source acquisition configuration
type SourceConfig struct {
	ScratchRoot         string `json:"scratch_root" mapstructure:"scratch_root"`
	CloneTimeoutSeconds int    `json:"clone_timeout" mapstructure:"clone_timeout"` // seconds
}

// StoreConfig holds session store configuration
type StoreConfig struct {
	OutputRoot string `json:"output_root" mapstructure:"output_root"`
	TTLMinutes int    `json:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// GenerateConfig holds generation configuration
type GenerateConfig struct {
	TimeoutSeconds int `json:"timeout" mapstructure:"timeout"` // seconds
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// CloneTimeout returns the clone timeout as a duration
func (c *Config) CloneTimeout() time.Duration {
	return time.Duration(c.Source.CloneTimeoutSeconds) * time.Second
}

// SessionTTL returns the session TTL as a duration
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Store.TTLMinutes) * time.Minute
}

// GenerateTimeout returns the generation timeout as a duration
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Generate.TimeoutSeconds) * time.Second
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Source: SourceConfig{
			ScratchRoot:         filepath.Join(dataDir, "tmp"),
			CloneTimeoutSeconds: 120,
		},
		Store: StoreConfig{
			OutputRoot: filepath.Join(dataDir, "output"),
			TTLMinutes: 60,
		},
		Generate: GenerateConfig{
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "stencil")
	}
	return filepath.Join(home, ".stencil")
}
