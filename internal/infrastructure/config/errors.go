package config

import (
	"errors"
	"strings"
)

// ErrInvalidConfig is matched by every configuration validation failure.
//
//	if errors.Is(err, config.ErrInvalidConfig) {
//	    // operator intervention required, do not retry
//	}
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ValidationError lists every problem found while validating a Config.
type ValidationError struct {
	Problems []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "configuration errors: " + strings.Join(e.Problems, "; ")
}

// Is reports ErrInvalidConfig as a match so callers need not know the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}
