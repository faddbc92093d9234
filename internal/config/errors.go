package config

import (
	"errors"
)

// Sentinel errors for configuration loading. Callers branch with errors.Is.
var (
	// ErrInvalidConfig marks a configuration the service cannot start with.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig wraps failures reading or parsing configuration sources.
	ErrLoadConfig = errors.New("load config failed")
)
