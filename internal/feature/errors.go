package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every configuration error.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInsufficientFrames is returned when a frame is requested from a
	// buffer that does not hold enough frames.
	ErrInsufficientFrames = errors.New("insufficient frames")
)

// ConfigError reports an invalid or incompatible configuration value.
// It is raised before any frame is processed.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

// NewConfigError creates a ConfigError.
func NewConfigError(field, value, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
