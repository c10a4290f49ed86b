package config

import (
	"errors"
	"fmt"
)

// ConfigurationError marks a problem with the run's inputs or settings. It is
// always fatal and is raised before any network call is made.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Errorf returns a ConfigurationError with a formatted message.
func Errorf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a ConfigurationError carrying err as its cause.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Msg: msg, Err: err}
}

// IsConfigurationError reports whether err (or any error in its chain) is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
