package grid

import "errors"

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid grid configuration")

// ConfigurationError reports a grid configuration that cannot produce levels. It is never retriable.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "grid config [" + e.Field + "]: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}
