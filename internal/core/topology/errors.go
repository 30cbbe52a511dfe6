package topology

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConfiguration matches every ConfigError via errors.Is.
	ErrConfiguration = errors.New("configuration error")

	// Input errors
	ErrEmptyInput  = errors.New("topology document is empty")
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// Structure errors
	ErrMissingKey       = errors.New("required key is missing")
	ErrUndeclaredServer = errors.New("server is not declared in servers")
	ErrInvalidAddress   = errors.New("invalid IPv4 address")
	ErrInvalidPort      = errors.New("invalid port")
	ErrUnknownRole      = errors.New("unknown role")
)

// ConfigError reports a topology problem that makes the document unusable.
// It unwraps to the specific sentinel and also matches ErrConfiguration.
type ConfigError struct {
	Field   string // e.g., "storm.yaml.nimbus.host"
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
