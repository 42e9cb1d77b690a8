// Package config handles loading and validating price collector configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (optionally preloaded from .env)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Tokens and passwords should be set via environment variables or the
//     credential file, never committed in config.yaml
//   - The config file should have restricted permissions (0600)
//
// Validation failures are returned as *ValidationError, which matches
// ErrInvalidConfig with errors.Is. They are never retried.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	fmt.Println(cfg.Schedule.WakeHour)
package config
