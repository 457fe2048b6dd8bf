package config

import "fmt"

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Source.ScratchRoot == "" {
		return fmt.Errorf("source scratch_root is required")
	}
	if c.Store.OutputRoot == "" {
		return fmt.Errorf("store output_root is required")
	}
	if c.Store.TTLMinutes <= 0 {
		return fmt.Errorf("store ttl_minutes must be positive, got %d", c.Store.TTLMinutes)
	}
	if c.Source.CloneTimeoutSeconds < 0 {
		return fmt.Errorf("source clone_timeout must be >= 0, got %d", c.Source.CloneTimeoutSeconds)
	}
	if c.Generate.TimeoutSeconds < 0 {
		return fmt.Errorf("generate timeout must be >= 0, got %d", c.Generate.TimeoutSeconds)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}
