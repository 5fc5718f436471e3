package config

import (
	"errors"
)

var (
	// ErrInvalidConfig marks a setting that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a source (file, .env, environment) that could not be read or decoded.
	ErrLoadConfig = errors.New("load config failed")
)
